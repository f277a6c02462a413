package routes

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"ceprud-chatbot/internal/config"
	"ceprud-chatbot/internal/logger"
	"ceprud-chatbot/internal/rag"
	"ceprud-chatbot/models"
	"ceprud-chatbot/utils"

	"github.com/gin-gonic/gin"
)

// RAGDeps bundles what the retrieval endpoints need.
type RAGDeps struct {
	Store     *rag.Store
	Retriever *rag.Retriever
	Ingestor  *rag.Ingestor
	Guides    *rag.GuideStore
	Scraper   *rag.GuideScraper
}

func SetupRAGRoutes(router *gin.Engine, cfg *config.Config, deps *RAGDeps) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, models.HealthResponse{
			Status:    "healthy",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Version:   "1.0.0",
		})
	})

	router.POST("/search", func(c *gin.Context) {
		var req models.SearchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Invalid request data", gin.H{"error": err.Error()})
			return
		}
		if req.K <= 0 {
			req.K = 4
		}

		chunks, err := deps.Retriever.Retrieve(c.Request.Context(), req.Subject, req.Query, req.K, req.FilterMetadata)
		if err != nil {
			logger.Error("search failed", "subject", req.Subject, "error", err)
			utils.RespondWithInternalError(c, "Search failed", nil)
			return
		}

		resp := models.SearchResponse{
			Documents: make([]models.RetrievedDocument, 0, len(chunks)),
			Sources:   []string{},
		}
		seen := make(map[string]bool)
		for _, chunk := range chunks {
			resp.Documents = append(resp.Documents, models.RetrievedDocument{
				Content:  chunk.Content,
				Metadata: chunk.Metadata,
			})
			if source := chunk.Metadata["source"]; source != "" && !seen[source] {
				seen[source] = true
				resp.Sources = append(resp.Sources, source)
			}
		}
		c.JSON(http.StatusOK, resp)
	})

	router.POST("/populate", func(c *gin.Context) {
		subject := c.PostForm("subject")
		if subject == "" {
			utils.RespondWithBadRequest(c, "subject is required", nil)
			return
		}

		if c.PostForm("reset") == "true" && deps.Store.Count(subject) > 0 {
			if err := deps.Store.DeleteSubject(subject); err != nil {
				logger.Error("failed to reset subject index", "subject", subject, "error", err)
				utils.RespondWithInternalError(c, "Failed to reset subject index", nil)
				return
			}
			logger.Info("subject index reset before populate", "subject", subject)
		}

		var (
			result *rag.IngestResult
			err    error
		)
		form, formErr := c.MultipartForm()
		if formErr == nil && form != nil && len(form.File["files"]) > 0 {
			tmpDir, mkErr := os.MkdirTemp("", "populate-")
			if mkErr != nil {
				utils.RespondWithInternalError(c, "Failed to stage uploaded files", nil)
				return
			}
			defer os.RemoveAll(tmpDir)

			var files []rag.SourceFile
			for _, fh := range form.File["files"] {
				name := filepath.Base(fh.Filename)
				dst := filepath.Join(tmpDir, name)
				if saveErr := c.SaveUploadedFile(fh, dst); saveErr != nil {
					utils.RespondWithBadRequest(c, "Failed to read uploaded file", gin.H{"file": name})
					return
				}
				files = append(files, rag.SourceFile{Name: name, Path: dst})
			}
			result, err = deps.Ingestor.IngestFiles(c.Request.Context(), subject, files)
		} else {
			// No upload attached: ingest the subject's directory on disk.
			result, err = deps.Ingestor.IngestDir(c.Request.Context(), subject, filepath.Join(cfg.MaterialDataPath, subject))
		}
		if err != nil {
			logger.Error("populate failed", "subject", subject, "error", err)
			utils.RespondWithInternalError(c, "Failed to populate subject", gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, models.PopulateResponse{
			Success:        len(result.FailedFiles) == 0,
			Message:        fmt.Sprintf("Processed %d files for %s", len(result.ProcessedFiles), subject),
			Subject:        subject,
			ChunksAdded:    result.ChunksAdded,
			ExistingChunks: result.ExistingChunks,
			ProcessedFiles: result.ProcessedFiles,
			FailedFiles:    result.FailedFiles,
		})
	})

	router.GET("/subjects", func(c *gin.Context) {
		c.JSON(http.StatusOK, models.SubjectsResponse{Subjects: deps.Store.ListSubjects()})
	})

	router.DELETE("/subjects/:subject", func(c *gin.Context) {
		subject := c.Param("subject")
		if deps.Store.Count(subject) == 0 {
			utils.RespondWithNotFound(c, "Subject has no indexed material")
			return
		}
		if err := deps.Store.DeleteSubject(subject); err != nil {
			logger.Error("failed to delete subject index", "subject", subject, "error", err)
			utils.RespondWithInternalError(c, "Failed to delete subject", nil)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "subject": subject})
	})

	router.GET("/guide/:subject", func(c *gin.Context) {
		subject := c.Param("subject")
		section := c.Query("section")

		content, err := deps.Guides.Lookup(subject, section)
		if err != nil {
			logger.Error("guide lookup failed", "subject", subject, "error", err)
			utils.RespondWithInternalError(c, "Guide lookup failed", nil)
			return
		}
		if content == "" {
			utils.RespondWithNotFound(c, "No guide information for that subject or section")
			return
		}
		c.JSON(http.StatusOK, models.GuideResponse{
			Subject: subject,
			Section: section,
			Content: content,
		})
	})

	router.POST("/guide/scrape", func(c *gin.Context) {
		var req models.GuideScrapeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Invalid request data", gin.H{"error": err.Error()})
			return
		}

		guide, err := deps.Scraper.Scrape(req.Subject, req.URL)
		if err != nil {
			logger.Error("guide scrape failed", "subject", req.Subject, "url", req.URL, "error", err)
			utils.RespondWithError(c, http.StatusBadGateway, "scrape_failed",
				"Failed to scrape the teaching guide page", gin.H{"error": err.Error()})
			return
		}
		if err := deps.Guides.Save(guide); err != nil {
			logger.Error("failed to store scraped guide", "subject", req.Subject, "error", err)
			utils.RespondWithInternalError(c, "Failed to store the guide", nil)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"success":  true,
			"subject":  req.Subject,
			"sections": len(guide.Sections),
		})
	})
}
