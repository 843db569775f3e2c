package handlers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"hostreport/internal/collector"
	"hostreport/internal/middleware"
	"hostreport/internal/models"
	"hostreport/internal/report"
	"hostreport/internal/utils"
	"hostreport/internal/version"

	"github.com/gin-gonic/gin"
)

// SnapshotCollector produces one snapshot per call.
type SnapshotCollector interface {
	Collect(ctx context.Context, label string) (*models.SystemSnapshot, error)
}

// Alerter is told about every snapshot that lands in the filtered view.
type Alerter interface {
	AllocationAlert(ctx context.Context, s *models.SystemSnapshot, threshold float64) (bool, error)
}

const alertTimeout = 10 * time.Second

// ReportHandlers serve the dashboard, its JSON API and exports. Every request
// triggers a fresh collection; nothing is cached between requests.
type ReportHandlers struct {
	collector   SnapshotCollector
	threshold   float64
	logger      *utils.Logger
	alerter     Alerter
	authEnabled bool
}

func NewReportHandlers(c SnapshotCollector, threshold float64, logger *utils.Logger) *ReportHandlers {
	if threshold <= 0 {
		threshold = report.DefaultThreshold
	}
	return &ReportHandlers{collector: c, threshold: threshold, logger: logger}
}

// WithAlerter enables allocation alerts.
func (h *ReportHandlers) WithAlerter(a Alerter) *ReportHandlers {
	h.alerter = a
	return h
}

// WithAuth shows the logout link on rendered pages.
func (h *ReportHandlers) WithAuth(enabled bool) *ReportHandlers {
	h.authEnabled = enabled
	return h
}

// ReportPayload is the JSON shape shared by /api/report and the live feed.
type ReportPayload struct {
	Snapshot  *models.SystemSnapshot   `json:"snapshot"`
	Filtered  []*models.SystemSnapshot `json:"filtered"`
	Threshold float64                  `json:"threshold"`
	Warnings  []models.Notice          `json:"warnings"`
}

func (h *ReportHandlers) logf(format string, args ...interface{}) {
	if h.logger != nil {
		h.logger.Write(fmt.Sprintf(format, args...))
	}
}

// collect runs one collection and derives the filtered view and notices.
func (h *ReportHandlers) collect(ctx context.Context, label string, threshold float64) (*ReportPayload, error) {
	snap, err := h.collector.Collect(ctx, label)
	if err != nil {
		h.logf("Collection for %q failed: %v", label, err)
		return nil, err
	}
	payload := &ReportPayload{
		Snapshot:  snap,
		Filtered:  report.FilterAllocation([]*models.SystemSnapshot{snap}, threshold),
		Threshold: threshold,
		Warnings:  []models.Notice{},
	}
	if !snap.DiskAvailable() {
		payload.Warnings = append(payload.Warnings, models.NoDiskNotice)
	}
	if len(payload.Filtered) > 0 {
		h.alert(snap.Copy(), threshold)
	}
	return payload, nil
}

// alert runs detached from the request so a slow webhook never delays a report.
func (h *ReportHandlers) alert(snap *models.SystemSnapshot, threshold float64) {
	if h.alerter == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), alertTimeout)
		defer cancel()
		if _, err := h.alerter.AllocationAlert(ctx, snap, threshold); err != nil {
			h.logf("Allocation alert for %q failed: %v", snap.ServerName, err)
		}
	}()
}

func collectionError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{
		"error":      err.Error(),
		"kind":       collector.KindOf(err).String(),
		"request_id": middleware.GetRequestID(c),
	})
}

// Dashboard renders the input form and, when a label is given, the report.
func (h *ReportHandlers) Dashboard(c *gin.Context) {
	label := normalizeLabel(c.Query("host"))
	data := gin.H{
		"label":       label,
		"threshold":   h.threshold,
		"columns":     report.Columns,
		"version":     version.String(),
		"authEnabled": h.authEnabled,
	}
	if label == "" {
		c.HTML(http.StatusOK, "dashboard.html", data)
		return
	}

	payload, err := h.collect(c.Request.Context(), label, h.threshold)
	if err != nil {
		data["error"] = err.Error()
		data["errorKind"] = collector.KindOf(err).String()
		ToastError(c, "Collection failed", err.Error())
		c.HTML(http.StatusInternalServerError, "dashboard.html", data)
		return
	}

	filtered := make([][]string, 0, len(payload.Filtered))
	for _, s := range payload.Filtered {
		filtered = append(filtered, report.Row(s))
	}
	data["snapshot"] = payload.Snapshot
	data["row"] = report.Row(payload.Snapshot)
	data["filtered"] = filtered
	data["warnings"] = payload.Warnings
	data["csvName"] = report.Filename(label, "csv")
	ToastNotice(c, payload.Warnings)
	c.HTML(http.StatusOK, "dashboard.html", data)
}

// APIReport returns the snapshot, the filtered view and any warnings.
func (h *ReportHandlers) APIReport(c *gin.Context) {
	var q ReportQuery
	if !middleware.BindQuery(c, &q) {
		return
	}
	payload, err := h.collect(c.Request.Context(), normalizeLabel(q.Host), h.threshold)
	if err != nil {
		collectionError(c, err)
		return
	}
	ToastNotice(c, payload.Warnings)
	c.JSON(http.StatusOK, payload)
}

// APIFiltered returns only the rows above the threshold.
func (h *ReportHandlers) APIFiltered(c *gin.Context) {
	var q FilteredQuery
	if !middleware.BindQuery(c, &q) {
		return
	}
	threshold := h.threshold
	if q.Threshold != nil {
		threshold = *q.Threshold
	}
	payload, err := h.collect(c.Request.Context(), normalizeLabel(q.Host), threshold)
	if err != nil {
		collectionError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"threshold": threshold,
		"columns":   report.Columns,
		"rows":      payload.Filtered,
	})
}

// Download serves the report as a CSV (default) or Parquet attachment.
func (h *ReportHandlers) Download(c *gin.Context) {
	var q DownloadQuery
	if !middleware.BindQuery(c, &q) {
		return
	}
	label := normalizeLabel(q.Host)
	payload, err := h.collect(c.Request.Context(), label, h.threshold)
	if err != nil {
		collectionError(c, err)
		return
	}

	var (
		buf         bytes.Buffer
		ext         string
		contentType string
	)
	switch q.Format {
	case "parquet":
		ext, contentType = "parquet", "application/vnd.apache.parquet"
		err = report.WriteParquet(&buf, payload.Snapshot)
	default:
		ext, contentType = "csv", "text/csv; charset=utf-8"
		err = report.WriteCSV(&buf, payload.Snapshot)
	}
	if err != nil {
		h.logf("Export of %q as %s failed: %v", label, ext, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to build export"})
		return
	}

	name := report.Filename(label, ext)
	h.logf("Exported %s for %q", name, label)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Data(http.StatusOK, contentType, buf.Bytes())
}

// Chart renders the usage percentages as a bar chart page.
func (h *ReportHandlers) Chart(c *gin.Context) {
	h.renderChart(c, report.RenderChart, "text/html; charset=utf-8")
}

// ChartPNG renders the same chart as a static image.
func (h *ReportHandlers) ChartPNG(c *gin.Context) {
	h.renderChart(c, report.RenderChartPNG, "image/png")
}

func (h *ReportHandlers) renderChart(c *gin.Context, render func(io.Writer, *models.SystemSnapshot, float64) error, contentType string) {
	var q ReportQuery
	if !middleware.BindQuery(c, &q) {
		return
	}
	payload, err := h.collect(c.Request.Context(), normalizeLabel(q.Host), h.threshold)
	if err != nil {
		collectionError(c, err)
		return
	}
	var buf bytes.Buffer
	if err := render(&buf, payload.Snapshot, h.threshold); err != nil {
		h.logf("Chart render failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to render chart"})
		return
	}
	c.Data(http.StatusOK, contentType, buf.Bytes())
}

// LivePayload builds the websocket message for label. Failures are reported
// in-band so the feed keeps running.
func (h *ReportHandlers) LivePayload(ctx context.Context, label string) interface{} {
	payload, err := h.collect(ctx, label, h.threshold)
	if err != nil {
		return gin.H{"error": err.Error(), "kind": collector.KindOf(err).String()}
	}
	return payload
}

func Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func Version(c *gin.Context) {
	c.JSON(http.StatusOK, version.Info())
}
