// Package httpapi serves the designer and filler operations over HTTP for
// server mode. Files are uploaded as multipart forms instead of being read
// from the working directory.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/a3tai/mcp-pdf-forms/internal/config"
	"github.com/a3tai/mcp-pdf-forms/internal/filler"
	"github.com/a3tai/mcp-pdf-forms/internal/form"
	"github.com/a3tai/mcp-pdf-forms/internal/output"
	"github.com/a3tai/mcp-pdf-forms/internal/pdf"
	"github.com/a3tai/mcp-pdf-forms/internal/service"
	"github.com/a3tai/mcp-pdf-forms/internal/session"
)

// FileField is the multipart form field carrying uploads.
const FileField = "file"

const shutdownTimeout = 10 * time.Second

// Server is the HTTP front end.
type Server struct {
	config  *config.Config
	service *service.Service
	engine  *gin.Engine
	logger  *zap.Logger
}

// NewServer builds the router.
func NewServer(cfg *config.Config, svc *service.Service) (*Server, error) {
	if svc == nil {
		return nil, fmt.Errorf("service cannot be nil")
	}
	if !cfg.IsDebug() {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		config:  cfg,
		service: svc,
		engine:  gin.New(),
		logger:  zap.L().Named("http"),
	}
	s.engine.Use(s.requestLogger(), gin.Recovery())
	s.engine.MaxMultipartMemory = cfg.MaxFileSize
	s.routes()
	return s, nil
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) routes() {
	s.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := s.engine.Group("/api/v1")
	{
		v1.GET("/info", s.serverInfo)
		v1.DELETE("/sessions/:id", s.closeSession)

		// Field designer
		v1.POST("/designer", s.openDesigner)
		v1.GET("/designer/:id", s.designerStatus)
		v1.POST("/designer/:id/pdf", s.designerLoadPDF)
		v1.POST("/designer/:id/drawing", s.designerBeginDrawing)
		v1.POST("/designer/:id/pointer", s.designerPointer)
		v1.POST("/designer/:id/fields", s.designerAddField)
		v1.DELETE("/designer/:id/draft", s.designerCancelField)
		v1.PATCH("/designer/:id/fields/:field", s.designerUpdateField)
		v1.DELETE("/designer/:id/fields/:field", s.designerRemoveField)
		v1.POST("/designer/:id/undo", s.designerUndo)
		v1.GET("/designer/:id/template", s.designerTemplate)
		v1.POST("/designer/:id/template", s.designerImportTemplate)
		v1.POST("/designer/:id/acroform", s.designerImportAcroForm)
		v1.POST("/designer/:id/export", s.designerExport)
		v1.GET("/designer/:id/preview", s.designerPreview)

		// Form filler
		v1.POST("/filler", s.openFiller)
		v1.GET("/filler/:id", s.fillerStatus)
		v1.POST("/filler/:id/template", s.fillerLoadTemplate)
		v1.POST("/filler/:id/pdf", s.fillerLoadPDF)
		v1.PATCH("/filler/:id/values", s.fillerSetValues)
		v1.PUT("/filler/:id/values/:field", s.fillerSetValue)
		v1.DELETE("/filler/:id/values/:field", s.fillerClearValue)
		v1.POST("/filler/:id/values/:field/options", s.fillerToggleOption)
		v1.POST("/filler/:id/images/:field", s.fillerSetImage)
		v1.GET("/filler/:id/validation", s.fillerValidate)
		v1.POST("/filler/:id/generate", s.fillerGenerate)
		v1.GET("/filler/:id/preview", s.fillerPreview)
	}
}

// Run listens on the configured address until ctx is canceled.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.config.Address(),
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", zap.String("address", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server failed: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		s.logger.Info("shutting down")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown failed: %w", err)
		}
		return nil
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}

// statusFor maps operation failures onto HTTP status codes.
func statusFor(err error) int {
	var fe *form.Error
	switch {
	case errors.Is(err, session.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, session.ErrTooMany):
		return http.StatusTooManyRequests
	case errors.Is(err, pdf.ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.As(err, &fe):
		switch fe.Kind {
		case form.KindLoad, form.KindValidation:
			return http.StatusUnprocessableEntity
		case form.KindState:
			return http.StatusConflict
		case form.KindExport:
			return http.StatusBadGateway
		}
	}
	return http.StatusInternalServerError
}

func (s *Server) fail(c *gin.Context, err error) {
	status := statusFor(err)
	body := gin.H{"error": err.Error()}
	var fe *form.Error
	if errors.As(err, &fe) {
		body["kind"] = fe.Kind.String()
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	c.JSON(status, body)
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

// upload reads the multipart file, refusing anything above the size limit.
func (s *Server) upload(c *gin.Context) (string, []byte, bool) {
	header, err := c.FormFile(FileField)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file uploaded"})
		return "", nil, false
	}
	if header.Size > s.config.MaxFileSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": fmt.Sprintf("file too large: %d bytes (max %d)", header.Size, s.config.MaxFileSize)})
		return "", nil, false
	}

	f, err := header.Open()
	if err != nil {
		s.fail(c, fmt.Errorf("failed to open upload: %w", err))
		return "", nil, false
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, s.config.MaxFileSize+1))
	if err != nil {
		s.fail(c, fmt.Errorf("failed to read upload: %w", err))
		return "", nil, false
	}
	return filepath.Base(header.Filename), data, true
}

func (s *Server) serverInfo(c *gin.Context) {
	c.JSON(http.StatusOK, s.service.ServerInfo())
}

func (s *Server) closeSession(c *gin.Context) {
	if err := s.service.CloseSession(c.Param("id")); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) openDesigner(c *gin.Context) {
	info, err := s.service.OpenDesigner()
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, info)
}

func (s *Server) designerStatus(c *gin.Context) {
	status, err := s.service.DesignerStatus(service.SessionRequest{Session: c.Param("id")})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

func (s *Server) designerLoadPDF(c *gin.Context) {
	name, data, ok := s.upload(c)
	if !ok {
		return
	}
	result, err := s.service.DesignerLoadPDF(c.Request.Context(), c.Param("id"), name, data)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) designerBeginDrawing(c *gin.Context) {
	result, err := s.service.DesignerBeginDrawing(service.SessionRequest{Session: c.Param("id")})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) designerPointer(c *gin.Context) {
	var req service.PointerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	req.Session = c.Param("id")
	result, err := s.service.DesignerPointer(req)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) designerAddField(c *gin.Context) {
	var req service.FieldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	req.Session = c.Param("id")
	result, err := s.service.DesignerAddField(req)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (s *Server) designerCancelField(c *gin.Context) {
	if err := s.service.DesignerCancelField(service.SessionRequest{Session: c.Param("id")}); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) designerUpdateField(c *gin.Context) {
	var req service.UpdateFieldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	req.Session = c.Param("id")
	req.ID = c.Param("field")
	result, err := s.service.DesignerUpdateField(req)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) designerRemoveField(c *gin.Context) {
	result, err := s.service.DesignerRemoveField(service.FieldIDRequest{Session: c.Param("id"), ID: c.Param("field")})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) designerUndo(c *gin.Context) {
	result, err := s.service.DesignerUndo(service.SessionRequest{Session: c.Param("id")})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) designerImportAcroForm(c *gin.Context) {
	result, err := s.service.DesignerImportAcroForm(service.SessionRequest{Session: c.Param("id")})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) designerTemplate(c *gin.Context) {
	tpl, err := s.service.DesignerTemplate(service.SessionRequest{Session: c.Param("id")})
	if err != nil {
		s.fail(c, err)
		return
	}
	data, err := tpl.Marshal()
	if err != nil {
		s.fail(c, err)
		return
	}
	c.Data(http.StatusOK, output.ContentTypeJSON, data)
}

func (s *Server) designerImportTemplate(c *gin.Context) {
	_, data, ok := s.upload(c)
	if !ok {
		return
	}
	result, err := s.service.DesignerImportTemplate(c.Param("id"), data)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) designerExport(c *gin.Context) {
	result, err := s.service.DesignerExport(c.Request.Context(), service.SessionRequest{Session: c.Param("id")})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (s *Server) designerPreview(c *gin.Context) {
	png, err := s.service.DesignerPreview(service.SessionRequest{Session: c.Param("id")})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.Data(http.StatusOK, output.ContentTypePNG, png)
}

func (s *Server) openFiller(c *gin.Context) {
	info, err := s.service.OpenFiller()
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, info)
}

func (s *Server) fillerStatus(c *gin.Context) {
	status, err := s.service.FillerStatus(service.SessionRequest{Session: c.Param("id")})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

func (s *Server) fillerLoadTemplate(c *gin.Context) {
	_, data, ok := s.upload(c)
	if !ok {
		return
	}
	status, err := s.service.FillerLoadTemplate(c.Param("id"), data)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

func (s *Server) fillerLoadPDF(c *gin.Context) {
	name, data, ok := s.upload(c)
	if !ok {
		return
	}
	status, err := s.service.FillerLoadPDF(c.Request.Context(), c.Param("id"), name, data)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

// validation writes the validation state; invalid values are not an HTTP error.
func (s *Server) validation(c *gin.Context, result *service.ValidationResult, err error) {
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) fillerSetValue(c *gin.Context) {
	var req service.SetValueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	req.Session = c.Param("id")
	req.ID = c.Param("field")
	result, err := s.service.FillerSetValue(req)
	s.validation(c, result, err)
}

func (s *Server) fillerSetValues(c *gin.Context) {
	var req service.SetValuesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	req.Session = c.Param("id")
	result, err := s.service.FillerSetValues(req)
	s.validation(c, result, err)
}

func (s *Server) fillerToggleOption(c *gin.Context) {
	var req service.ToggleOptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	req.Session = c.Param("id")
	req.ID = c.Param("field")
	result, err := s.service.FillerToggleOption(req)
	s.validation(c, result, err)
}

func (s *Server) fillerSetImage(c *gin.Context) {
	header, err := c.FormFile(FileField)
	contentType := ""
	if err == nil {
		contentType = header.Header.Get("Content-Type")
	}
	name, data, ok := s.upload(c)
	if !ok {
		return
	}
	file := filler.ImageFile{Name: name, ContentType: contentType, Data: data}
	result, err := s.service.FillerSetImage(c.Param("id"), c.Param("field"), file)
	s.validation(c, result, err)
}

func (s *Server) fillerClearValue(c *gin.Context) {
	result, err := s.service.FillerClearValue(service.FieldIDRequest{Session: c.Param("id"), ID: c.Param("field")})
	s.validation(c, result, err)
}

func (s *Server) fillerValidate(c *gin.Context) {
	result, err := s.service.FillerValidate(service.SessionRequest{Session: c.Param("id")})
	s.validation(c, result, err)
}

func (s *Server) fillerGenerate(c *gin.Context) {
	result, err := s.service.FillerGenerate(c.Request.Context(), service.SessionRequest{Session: c.Param("id")})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (s *Server) fillerPreview(c *gin.Context) {
	png, err := s.service.FillerPreview(service.SessionRequest{Session: c.Param("id")})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.Data(http.StatusOK, output.ContentTypePNG, png)
}
