// Package summary renders the derived summary image: total cached countries,
// the last refresh timestamp, and the top five countries by estimated GDP,
// each with a small flag glyph when one can be downloaded.
//
// The generator is an independent failure domain. Individual flag downloads
// that fail or decode badly only lose that glyph; a missing font falls back
// to the builtin face; and any error is reported to the caller, who treats
// regeneration as best-effort.
package summary

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"os"
	"path/filepath"

	_ "image/gif"  // register gif for flag decoding
	_ "image/jpeg" // register jpeg for flag decoding

	"github.com/rs/zerolog/log"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gorm.io/gorm"

	"github.com/tbourn/go-country-cache/internal/config"
	"github.com/tbourn/go-country-cache/internal/domain"
	"github.com/tbourn/go-country-cache/internal/repo"
)

// Canvas layout. Mirrors the fixed 1000x800 composition of the summary.
const (
	canvasW, canvasH = 1000, 800
	flagW, flagH     = 60, 40
	topCount         = 5
	rowStart, rowGap = 300, 80
)

// Generator renders and writes the summary image from current store state.
type Generator struct {
	// DB is the read-only GORM handle for counts, top-5, and status.
	DB *gorm.DB
	// ImagePath is the well-known output location; prior images are replaced.
	ImagePath string
	// FontPath optionally points at a TTF; empty or unreadable falls back to
	// the builtin face.
	FontPath string
	// HTTP downloads flag glyphs; its timeout bounds each fetch.
	HTTP *http.Client
}

// New constructs a Generator from the summary configuration.
func New(db *gorm.DB, cfg config.SummaryConfig) *Generator {
	return &Generator{
		DB:        db,
		ImagePath: cfg.ImagePath,
		FontPath:  cfg.FontPath,
		HTTP:      &http.Client{Timeout: cfg.FlagFetch},
	}
}

// Generate renders the summary image and writes it to ImagePath, replacing
// any previous artifact. The write is staged through a temp file so readers
// never observe a half-written image.
func (g *Generator) Generate(ctx context.Context) error {
	lg := log.With().Str("component", "summary").Logger()

	total, err := repo.CountCountries(ctx, g.DB)
	if err != nil {
		return fmt.Errorf("count countries: %w", err)
	}
	top, err := repo.TopCountriesByGDP(ctx, g.DB, topCount)
	if err != nil {
		return fmt.Errorf("top countries: %w", err)
	}
	status, err := repo.GetCacheStatus(ctx, g.DB)
	if err != nil {
		return fmt.Errorf("cache status: %w", err)
	}

	flags := g.fetchFlags(ctx, top)

	faces := g.loadFaces()
	img := image.NewRGBA(image.Rect(0, 0, canvasW, canvasH))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)

	black := color.RGBA{A: 255}
	gray := color.RGBA{R: 50, G: 50, B: 50, A: 255}
	dark := color.RGBA{R: 20, G: 20, B: 20, A: 255}

	drawText(img, 50, 40, faces.title, black, "Country Data Summary")
	drawText(img, 50, 110, faces.text, gray, fmt.Sprintf("Total Countries Cached: %d", total))
	if status.LastFullRefreshAt != nil {
		drawText(img, 50, 150, faces.text, gray,
			"Last Refreshed: "+status.LastFullRefreshAt.UTC().Format("2006-01-02 15:04:05")+" UTC")
	}
	drawText(img, 50, 230, faces.header, black, "Top 5 Countries by Estimated GDP:")

	pr := message.NewPrinter(language.English)
	y := rowStart
	for i, c := range top {
		if flags[i] != nil {
			dst := image.Rect(60, y, 60+flagW, y+flagH)
			draw.ApproxBiLinear.Scale(img, dst, flags[i], flags[i].Bounds(), draw.Over, nil)
		}
		line := pr.Sprintf("%d. %s - GDP: $%.2f Billion", i+1, c.Name, c.EstimatedGDP/1e9)
		drawText(img, 140, y+5, faces.text, dark, line)
		y += rowGap
	}

	if err := writePNG(g.ImagePath, img); err != nil {
		return err
	}
	lg.Info().Str("path", g.ImagePath).Int64("countries", total).Msg("summary image generated")
	return nil
}

// fetchFlags downloads the flag for each top entry concurrently. The result
// slice is index-aligned with top; failed or undecodable flags are nil.
func (g *Generator) fetchFlags(ctx context.Context, top []domain.Country) []image.Image {
	flags := make([]image.Image, len(top))
	grp, gctx := errgroup.WithContext(ctx)
	for i := range top {
		if top[i].FlagURL == nil || *top[i].FlagURL == "" {
			continue
		}
		i := i
		url := *top[i].FlagURL
		grp.Go(func() error {
			img, err := g.fetchFlag(gctx, url)
			if err != nil {
				log.Warn().Str("url", url).Err(err).Msg("skipping flag glyph")
				return nil // glyph loss is not an error
			}
			flags[i] = img
			return nil
		})
	}
	_ = grp.Wait()
	return flags
}

// fetchFlag downloads and decodes one flag image.
func (g *Generator) fetchFlag(ctx context.Context, url string) (image.Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := g.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("flag fetch returned status %d", resp.StatusCode)
	}
	img, _, err := image.Decode(resp.Body)
	if err != nil {
		return nil, err
	}
	return img, nil
}

// faceSet groups the three text sizes used in the layout.
type faceSet struct {
	title  font.Face
	header font.Face
	text   font.Face
}

// loadFaces parses the configured TTF at the three layout sizes. Any problem
// (no path, unreadable file, parse error) degrades to the builtin face.
func (g *Generator) loadFaces() faceSet {
	fallback := faceSet{
		title:  basicfont.Face7x13,
		header: basicfont.Face7x13,
		text:   basicfont.Face7x13,
	}
	if g.FontPath == "" {
		return fallback
	}
	data, err := os.ReadFile(g.FontPath)
	if err != nil {
		log.Warn().Str("path", g.FontPath).Err(err).Msg("font not readable, using builtin face")
		return fallback
	}
	f, err := opentype.Parse(data)
	if err != nil {
		log.Warn().Str("path", g.FontPath).Err(err).Msg("font not parsable, using builtin face")
		return fallback
	}
	face := func(size float64) font.Face {
		fc, err := opentype.NewFace(f, &opentype.FaceOptions{Size: size, DPI: 72, Hinting: font.HintingFull})
		if err != nil {
			return basicfont.Face7x13
		}
		return fc
	}
	return faceSet{title: face(36), header: face(28), text: face(22)}
}

// drawText renders s with its top-left corner at (x, y).
func drawText(dst *image.RGBA, x, y int, face font.Face, col color.Color, s string) {
	m := face.Metrics()
	d := font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(col),
		Face: face,
		Dot:  fixed.P(x, y+m.Ascent.Ceil()),
	}
	d.DrawString(s)
}

// writePNG encodes img to path via a temp file in the same directory, then
// renames it into place so concurrent readers see old-or-new, never partial.
func writePNG(path string, img image.Image) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create image dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".summary-*.png")
	if err != nil {
		return fmt.Errorf("create temp image: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if err := png.Encode(tmp, img); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("encode png: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp image: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace image: %w", err)
	}
	return nil
}
