package main

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"bitbucket.org/mmdatafocus/audit_backend/config"
	"bitbucket.org/mmdatafocus/audit_backend/models"
	"bitbucket.org/mmdatafocus/audit_backend/utils"
	"bitbucket.org/mmdatafocus/audit_backend/workflow"
)

// importHandler accepts a multipart upload with a "file" part, an optional
// "import_type" and an optional "mapping" JSON object (canonical column ->
// source column).
func (a *app) importHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, a.settings.MaxUploadBytes)
		fh, err := c.FormFile("file")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
			return
		}
		var importType models.ImportType
		if raw := strings.TrimSpace(c.PostForm("import_type")); raw != "" {
			if importType, err = models.ParseImportType(raw); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
		}
		var mapping map[string]string
		if raw := strings.TrimSpace(c.PostForm("mapping")); raw != "" {
			if err := json.Unmarshal([]byte(raw), &mapping); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "mapping must be a JSON object"})
				return
			}
		}

		f, err := fh.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "cannot open file"})
			return
		}
		defer f.Close()
		content, err := io.ReadAll(f)
		if err != nil {
			logUploadError(a.logger, err, fh.Filename, c)
			c.JSON(http.StatusBadRequest, gin.H{"error": "cannot read file"})
			return
		}

		res, err := workflow.ProcessImport(c.Request.Context(), workflow.ImportRequest{
			FileName:      fh.Filename,
			Content:       content,
			ImportType:    importType,
			CustomMapping: mapping,
		})
		if err != nil {
			status := http.StatusBadRequest
			if !errors.Is(err, utils.ErrorUnsupportedFormat) && !errors.Is(err, utils.ErrorUnknownImportType) {
				status = http.StatusUnprocessableEntity
			}
			logUploadError(a.logger, err, fh.Filename, c)
			c.JSON(status, gin.H{"error": err.Error()})
			return
		}
		if !res.Success {
			c.JSON(http.StatusUnprocessableEntity, res)
			return
		}
		c.JSON(http.StatusOK, res)
	}
}

func logUploadError(logger *logrus.Logger, err error, fileName string, c *gin.Context) {
	cid, _ := utils.GetCorrelationIdFromContext(c.Request.Context())
	config.LogError(logger, "uploads.go", "importHandler", "[import.error] "+cid, fileName, err)
}
