package templates

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ResumeMailer/internal/models"
)

func newTestRenderer(t *testing.T) *Renderer {
	t.Helper()
	r, err := New("https://app.example.com/")
	require.NoError(t, err)
	return r
}

func TestRenderWelcomeEnglish(t *testing.T) {
	r := newTestRenderer(t)

	out, err := r.Render(context.Background(), RenderInput{
		Campaign: models.CampaignWelcome,
		Locale:   models.LocaleEnglish,
		Variant:  "day0",
		UserID:   "u 1",
		Name:     "Dana",
	})
	require.NoError(t, err)

	assert.Equal(t, "Welcome to ResumeMailer, Dana!", out.Subject)
	assert.Contains(t, out.HTML, `dir="ltr"`)
	assert.Contains(t, out.HTML, "Hi Dana,")
	assert.Contains(t, out.HTML, "https://app.example.com/dashboard")
	assert.Contains(t, out.HTML, "https://app.example.com/settings/email?user=u&#43;1")
}

func TestRenderEveryVariantInEveryLocale(t *testing.T) {
	r := newTestRenderer(t)

	for campaign, variants := range catalog {
		for variant := range variants {
			for _, locale := range []models.Locale{models.LocaleEnglish, models.LocaleArabic, models.LocaleKurdish} {
				out, err := r.Render(context.Background(), RenderInput{
					Campaign:     campaign,
					Locale:       locale,
					Variant:      variant,
					UserID:       "u1",
					ResumeID:     "r1",
					ResumeTitle:  "Untitled",
					InactiveDays: 45,
				})
				require.NoError(t, err, "%s/%s/%s", campaign, variant, locale)
				assert.NotEmpty(t, out.Subject)
				if locale.RTL() {
					assert.Contains(t, out.HTML, `dir="rtl"`)
				}
			}
		}
	}
}

func TestRenderAbandonedEscapesTitle(t *testing.T) {
	r := newTestRenderer(t)

	out, err := r.Render(context.Background(), RenderInput{
		Campaign:    models.CampaignAbandonedResume,
		Locale:      models.LocaleArabic,
		UserID:      "u1",
		ResumeID:    "r/1",
		ResumeTitle: "<b>Engineer</b>",
		Completion:  40,
	})
	require.NoError(t, err)

	assert.Contains(t, out.Subject, "<b>Engineer</b>")
	assert.NotContains(t, out.HTML, "<b>Engineer</b>")
	assert.Contains(t, out.HTML, "/resumes/r%2F1/edit")
	assert.Contains(t, out.HTML, "40٪")
}

func TestRenderFallsBackToEnglish(t *testing.T) {
	r := newTestRenderer(t)

	out, err := r.Render(context.Background(), RenderInput{
		Campaign: models.CampaignReengagement,
		Locale:   models.Locale("fr"),
		Variant:  "90d",
		UserID:   "u1",
	})
	require.NoError(t, err)
	assert.Equal(t, "Is your resume still up to date?", out.Subject)
	assert.Contains(t, out.HTML, "Hi there,")
}

func TestRenderUnknownTemplate(t *testing.T) {
	r := newTestRenderer(t)

	_, err := r.Render(context.Background(), RenderInput{Campaign: models.Campaign("NEWSLETTER"), Variant: "x"})
	assert.ErrorIs(t, err, ErrUnknownTemplate)

	_, err = r.Render(context.Background(), RenderInput{Campaign: models.CampaignWelcome, Variant: "day99"})
	assert.ErrorIs(t, err, ErrUnknownTemplate)
}
