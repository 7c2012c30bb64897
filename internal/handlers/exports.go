package handlers

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jung-kurt/gofpdf/v2"
	"github.com/labstack/echo/v4"

	"example.com/ecopulse/backend/internal/auth"
	"example.com/ecopulse/backend/internal/models"
	"example.com/ecopulse/backend/internal/profile"
	"example.com/ecopulse/backend/internal/progression"
)

const timeLayout = time.RFC3339

type ExportHandler struct {
	Registry *progression.Registry
	Now      func() time.Time
}

// NewExportHandler создает обработчик выгрузок прогресса.
func NewExportHandler(registry *progression.Registry) *ExportHandler {
	return &ExportHandler{Registry: registry, Now: time.Now}
}

// ProgressExport — прогресс игрока по обоим режимам.
type ProgressExport struct {
	PlayerID   uuid.UUID            `json:"player_id"`
	ActiveMode models.Mode          `json:"active_mode"`
	ExportedAt string               `json:"exported_at"`
	Modes      []ModeProgressExport `json:"modes"`
}

type ModeProgressExport struct {
	Mode        models.Mode   `json:"mode"`
	CoinBalance int64         `json:"coin_balance"`
	Level       models.Level  `json:"level"`
	MaxRank     int           `json:"max_rank"`
	Next        *models.Level `json:"next,omitempty"`
}

// ExportJSON выгружает прогресс в JSON-файл.
func (h *ExportHandler) ExportJSON(c echo.Context) error {
	export, err := h.build(c)
	if err != nil {
		return err
	}

	filename := "ecopulse-progress-" + export.PlayerID.String() + ".json"
	c.Response().Header().Set(echo.HeaderContentDisposition, "attachment; filename=\""+filename+"\"")
	return c.JSON(http.StatusOK, export)
}

// ExportCSV выгружает прогресс в CSV-файл, по строке на режим.
func (h *ExportHandler) ExportCSV(c echo.Context) error {
	export, err := h.build(c)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	if err := writeProgressCSV(writer, export); err != nil {
		return serverError(c)
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return serverError(c)
	}

	filename := "ecopulse-progress-" + export.PlayerID.String() + ".csv"
	c.Response().Header().Set(echo.HeaderContentDisposition, "attachment; filename=\""+filename+"\"")
	return c.Blob(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

// Certificate выгружает PDF-сертификат ранга активного режима.
func (h *ExportHandler) Certificate(c echo.Context) error {
	export, err := h.build(c)
	if err != nil {
		return err
	}

	var active ModeProgressExport
	for _, m := range export.Modes {
		if m.Mode == export.ActiveMode {
			active = m
		}
	}

	playerID, _ := auth.PlayerIDFromContext(c)
	name := "Eco Hero"
	if p, found, err := profile.Load(c.Request().Context(), h.Registry.Store(playerID)); err == nil && found && p.Name != "" {
		name = p.Name
	}

	pdf, err := renderCertificate(name, active, h.Now())
	if err != nil {
		return serverError(c)
	}

	c.Response().Header().Set(echo.HeaderContentDisposition, "attachment; filename=\"ecopulse-certificate.pdf\"")
	return c.Blob(http.StatusOK, "application/pdf", pdf)
}

func (h *ExportHandler) build(c echo.Context) (ProgressExport, error) {
	engine, playerID, err := engineFromContext(c, h.Registry)
	if err != nil {
		return ProgressExport{}, err
	}

	export := ProgressExport{
		PlayerID:   playerID,
		ActiveMode: engine.Mode(),
		ExportedAt: h.Now().UTC().Format(timeLayout),
		Modes:      make([]ModeProgressExport, 0, len(models.Modes)),
	}

	for _, mode := range models.Modes {
		dashboard, err := engine.Snapshot(mode, nil)
		if err != nil {
			return export, echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
		}
		export.Modes = append(export.Modes, ModeProgressExport{
			Mode:        mode,
			CoinBalance: dashboard.CoinBalance,
			Level:       dashboard.Current,
			MaxRank:     dashboard.MaxRank,
			Next:        dashboard.Next,
		})
	}

	return export, nil
}

func writeProgressCSV(writer *csv.Writer, export ProgressExport) error {
	header := []string{
		"player_id",
		"mode",
		"active",
		"coin_balance",
		"rank",
		"level_name",
		"max_rank",
		"next_cost",
	}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, m := range export.Modes {
		nextCost := ""
		if m.Next != nil {
			nextCost = formatInt64(m.Next.Cost)
		}
		record := []string{
			export.PlayerID.String(),
			string(m.Mode),
			formatBool(m.Mode == export.ActiveMode),
			formatInt64(m.CoinBalance),
			formatInt(m.Level.Rank),
			m.Level.Name,
			formatInt(m.MaxRank),
			nextCost,
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	return nil
}

// renderCertificate рисует одностраничный сертификат. Встроенные шрифты PDF не содержат эмодзи,
// поэтому иконка ранга не выводится.
func renderCertificate(name string, progress ModeProgressExport, issuedAt time.Time) ([]byte, error) {
	const (
		pageW  = 842.0
		pageH  = 595.0
		margin = 36.0
	)

	pdf := gofpdf.New("L", "pt", "A4", "")
	pdf.SetMargins(margin, margin, margin)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFillColor(236, 253, 245)
	pdf.Rect(0, 0, pageW, pageH, "F")
	pdf.SetDrawColor(16, 185, 129)
	pdf.SetLineWidth(4)
	pdf.Rect(margin/2, margin/2, pageW-margin, pageH-margin, "D")

	pdf.SetTextColor(6, 78, 59)
	pdf.SetFont("Helvetica", "B", 34)
	pdf.SetXY(margin, 110)
	pdf.CellFormat(pageW-2*margin, 40, "EcoPulse Certificate", "", 0, "C", false, 0, "")

	pdf.SetFont("Helvetica", "", 16)
	pdf.SetXY(margin, 180)
	pdf.CellFormat(pageW-2*margin, 20, "This certifies that", "", 0, "C", false, 0, "")

	pdf.SetFont("Helvetica", "B", 28)
	pdf.SetXY(margin, 215)
	pdf.CellFormat(pageW-2*margin, 34, tr(asciiFallback(name)), "", 0, "C", false, 0, "")

	pdf.SetFont("Helvetica", "", 16)
	pdf.SetXY(margin, 270)
	pdf.CellFormat(pageW-2*margin, 20, "has reached the rank of", "", 0, "C", false, 0, "")

	pdf.SetFont("Helvetica", "B", 24)
	pdf.SetXY(margin, 300)
	rank := fmt.Sprintf("%s (rank %d of %d)", progress.Level.Name, progress.Level.Rank, progress.MaxRank)
	pdf.CellFormat(pageW-2*margin, 30, tr(asciiFallback(rank)), "", 0, "C", false, 0, "")

	pdf.SetFont("Helvetica", "I", 12)
	pdf.SetXY(margin, 360)
	details := fmt.Sprintf("%s mode - %d coins saved - issued %s",
		strings.ToUpper(string(progress.Mode)), progress.CoinBalance, issuedAt.UTC().Format("2006-01-02"))
	pdf.CellFormat(pageW-2*margin, 16, details, "", 0, "C", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// asciiFallback убирает символы вне Latin-1, которые встроенные шрифты не отрисуют.
func asciiFallback(value string) string {
	var b strings.Builder
	for _, r := range value {
		if r <= 0xFF {
			b.WriteRune(r)
		}
	}
	out := strings.TrimSpace(b.String())
	if out == "" {
		return "Eco Hero"
	}
	return out
}

func formatInt64(value int64) string {
	return strconv.FormatInt(value, 10)
}

func formatInt(value int) string {
	return strconv.Itoa(value)
}

func formatBool(value bool) string {
	if value {
		return "true"
	}
	return "false"
}
