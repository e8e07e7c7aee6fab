// Package server exposes the research pipeline over HTTP: one processing
// endpoint plus DOCX and PDF downloads of stored reports.
package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog/log"

	"github.com/sageview/sageview/internal/app"
	"github.com/sageview/sageview/internal/render"
	"github.com/sageview/sageview/internal/report"
	"github.com/sageview/sageview/internal/search"
	"github.com/sageview/sageview/internal/synth"
)

const docxMIME = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

// Pipeline runs one research query end to end.
type Pipeline interface {
	Research(ctx context.Context, query string, depth search.Depth) (report.Report, []report.Source, error)
}

type Server struct {
	Pipeline Pipeline
	Store    *report.Store
}

func New(p Pipeline, st *report.Store) *Server {
	return &Server{Pipeline: p, Store: st}
}

// Routes builds the configured echo instance.
func (s *Server) Routes() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderContentType},
	}))
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := err.Error()
		var he *echo.HTTPError
		if errors.As(err, &he) {
			code = he.Code
			if he.Message != nil {
				msg = fmt.Sprint(he.Message)
			}
		}
		req := c.Request()
		log.Error().Int("status", code).Str("method", req.Method).Str("path", req.URL.Path).Err(err).Msg("request failed")
		if !c.Response().Committed {
			_ = c.JSON(code, map[string]string{"error": msg})
		}
	}

	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	e.POST("/api/research", s.handleResearch)
	e.GET("/download/docx/:id", s.handleDownloadDOCX)
	e.GET("/download/pdf/:id", s.handleDownloadPDF)
	return e
}

func (s *Server) Start(addr string) error {
	return s.Routes().Start(addr)
}

type researchRequest struct {
	Query string `json:"query"`
	Depth string `json:"depth"`
}

type researchResponse struct {
	ReportID   string          `json:"report_id"`
	AnswerHTML string          `json:"answer_html"`
	Sources    []report.Source `json:"sources"`
	Depth      search.Depth    `json:"research_depth"`
}

func (s *Server) handleResearch(c echo.Context) error {
	var req researchRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Request must be JSON")
	}
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Query cannot be empty.")
	}
	depth := search.DepthShallow
	if req.Depth == string(search.DepthDeep) {
		depth = search.DepthDeep
	}

	rep, sources, err := s.Pipeline.Research(c.Request().Context(), query, depth)
	if err != nil {
		var f *synth.Failure
		switch {
		case errors.Is(err, app.ErrNoSearchResults):
			return echo.NewHTTPError(http.StatusNotFound, "Could not find relevant web sources.")
		case errors.Is(err, app.ErrNoUsableContent):
			return echo.NewHTTPError(http.StatusBadGateway, "Failed to retrieve usable content from web sources.")
		case errors.As(err, &f):
			log.Error().Str("reason", string(f.Reason)).Str("query", query).Msg("synthesis failed")
			return c.JSON(http.StatusInternalServerError, map[string]any{
				"error":          "AI Synthesis Error: " + f.Message,
				"sources":        sources,
				"research_depth": depth,
			})
		default:
			log.Error().Err(err).Str("query", query).Msg("research failed")
			return echo.NewHTTPError(http.StatusInternalServerError, "An unexpected internal server error.")
		}
	}

	id := s.Store.Put(rep)
	return c.JSON(http.StatusOK, researchResponse{
		ReportID:   id,
		AnswerHTML: rep.Markup,
		Sources:    sources,
		Depth:      depth,
	})
}

func (s *Server) handleDownloadDOCX(c echo.Context) error {
	rep, ok := s.Store.Get(c.Param("id"))
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "Report not found or has expired.")
	}
	var buf bytes.Buffer
	if err := render.DOCX(&buf, rep); err != nil {
		log.Error().Err(err).Str("id", c.Param("id")).Msg("docx generation failed")
		return echo.NewHTTPError(http.StatusInternalServerError, "Error generating DOCX file.")
	}
	return serveAttachment(c, buf.Bytes(), docxMIME, downloadName(rep.Query, "docx"))
}

func (s *Server) handleDownloadPDF(c echo.Context) error {
	rep, ok := s.Store.Get(c.Param("id"))
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "Report not found or has expired.")
	}
	var buf bytes.Buffer
	if err := render.PDF(&buf, rep); err != nil {
		log.Error().Err(err).Str("id", c.Param("id")).Msg("pdf generation failed")
		return echo.NewHTTPError(http.StatusInternalServerError, "Error generating PDF file.")
	}
	return serveAttachment(c, buf.Bytes(), "application/pdf", downloadName(rep.Query, "pdf"))
}

func downloadName(query, ext string) string {
	return fmt.Sprintf("Research_Report_%s.%s", app.Slug(query), ext)
}

func serveAttachment(c echo.Context, data []byte, mime, filename string) error {
	log.Info().Str("filename", filename).Int("bytes", len(data)).Msg("serving export")
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	return c.Blob(http.StatusOK, mime, data)
}
