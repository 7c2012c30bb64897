package handlers

import (
	"bytes"
	"context"
	"encoding/csv"
	"net/http"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/ecopulse/backend/internal/models"
	"example.com/ecopulse/backend/internal/profile"
)

// TestExportCSV проверяет строки выгрузки по режимам.
func TestExportCSV(t *testing.T) {
	registry := newTestRegistry(t)
	handler := NewExportHandler(registry)
	playerID := uuid.New()

	engine, err := registry.For(context.Background(), playerID)
	require.NoError(t, err)
	_, err = engine.EarnCoins(context.Background(), models.ModeKid, 42)
	require.NoError(t, err)

	c, rec := newRequest(newTestEcho(), http.MethodGet, "/api/v1/exports/progress.csv", "", playerID)
	require.NoError(t, handler.ExportCSV(c))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "attachment")

	records, err := csv.NewReader(bytes.NewReader(rec.Body.Bytes())).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)

	want := []string{playerID.String(), "kid", "false", "42", "1"}
	if diff := cmp.Diff(want, records[2][:5]); diff != "" {
		t.Fatalf("kid row mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "true", records[1][2])
}

// TestExportJSON проверяет выгрузку обоих режимов.
func TestExportJSON(t *testing.T) {
	handler := NewExportHandler(newTestRegistry(t))
	handler.Now = func() time.Time { return time.Date(2026, 4, 22, 0, 0, 0, 0, time.UTC) }

	c, rec := newRequest(newTestEcho(), http.MethodGet, "/api/v1/exports/progress.json", "", uuid.New())
	require.NoError(t, handler.ExportJSON(c))

	var export ProgressExport
	decodeBody(t, rec, &export)
	assert.Equal(t, "2026-04-22T00:00:00Z", export.ExportedAt)
	require.Len(t, export.Modes, 2)
	require.NotNil(t, export.Modes[0].Next)
	assert.Equal(t, 2, export.Modes[0].Next.Rank)
}

// TestCertificatePDF проверяет, что сертификат собирается с именем из анкеты.
func TestCertificatePDF(t *testing.T) {
	registry := newTestRegistry(t)
	handler := NewExportHandler(registry)
	playerID := uuid.New()

	require.NoError(t, profile.Save(context.Background(), registry.Store(playerID), models.Profile{
		Name: "Ana 🌱", Age: "9", Pronouns: "she/her", AvatarIcon: "🦊",
	}))

	c, rec := newRequest(newTestEcho(), http.MethodGet, "/api/v1/exports/certificate.pdf", "", playerID)
	require.NoError(t, handler.Certificate(c))
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")))
}

// TestASCIIFallback проверяет удаление символов, которых нет во встроенных шрифтах.
func TestASCIIFallback(t *testing.T) {
	assert.Equal(t, "Ana", asciiFallback("Ana 🌱"))
	assert.Equal(t, "José", asciiFallback("José"))
	assert.Equal(t, "Eco Hero", asciiFallback("🦊🦊"))
}
