package http

import (
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// allowedExtensions mirrors the upload allow-list of the account site.
// Content validation beyond the extension is out of scope here.
var allowedExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true,
	".mp4": true, ".mp3": true, ".pdf": true, ".doc": true, ".docx": true,
}

// uploadHandler stores one media file under a random name and returns
// the URL the client passes back as media_url in send_message. This is
// the only coupling between uploads and the relay core.
func uploadHandler(uploadDir string) gin.HandlerFunc {
	return func(c *gin.Context) {
		file, err := c.FormFile("media_file")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "no file part"})
			return
		}

		ext := strings.ToLower(filepath.Ext(file.Filename))
		if !allowedExtensions[ext] {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file type not allowed"})
			return
		}

		name := uuid.NewString() + ext
		dst := filepath.Join(uploadDir, name)
		if err := c.SaveUploadedFile(file, dst); err != nil {
			log.Error().Err(err).Str("module", "adapters.http").Str("dst", dst).Msg("upload save failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "error uploading file"})
			return
		}

		log.Info().Str("module", "adapters.http").Str("user", c.GetString("user_id")).Str("file", name).Msg("media uploaded")
		c.JSON(http.StatusOK, gin.H{"media_url": "/uploads/" + name})
	}
}
