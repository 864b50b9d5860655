package coach

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/coocood/freecache"
	"golang.org/x/sync/singleflight"

	"github.com/meltforce/titanlift/internal/models"
)

// ErrScanFailed is the single error a caller sees when a workout scan
// cannot produce a result, whatever the cause.
var ErrScanFailed = errors.New("could not read a workout from the image")

// Fallback texts used when the model is unavailable.
var (
	FallbackQuotes = []string{
		"Go and win.",
		"Focus on the workout.",
		"Your only competition is you.",
	}
	FallbackTip = Tip{Text: "Move slowly and pay attention to your posture."}
)

const (
	DefaultTimeout  = 20 * time.Second
	DefaultCacheTTL = 24 * time.Hour

	// cacheSize is the freecache arena in bytes; 1 MiB holds thousands of tips.
	cacheSize = 1 << 20

	quotePrompt  = "Give a very short gym motivation phrase. Five words at most."
	tipSystem    = "You are a friendly, expert personal trainer. Use simple, direct language."
	tipPrompt    = "Explain very simply how to perform the exercise %s better. Search the web for current, safe technique tips."
	scanPrompt   = "Analyse this workout screenshot. Extract the exercise names, the number of sets and the suggested reps. Return strictly structured JSON."
	maxScanBytes = 10 << 20
)

// scanSchema is the structured-output schema for ScanWorkout.
var scanSchema = map[string]any{
	"type": "OBJECT",
	"properties": map[string]any{
		"workoutName": map[string]any{"type": "STRING"},
		"exercises": map[string]any{
			"type": "ARRAY",
			"items": map[string]any{
				"type": "OBJECT",
				"properties": map[string]any{
					"name":          map[string]any{"type": "STRING"},
					"setsCount":     map[string]any{"type": "NUMBER"},
					"repsSuggested": map[string]any{"type": "NUMBER"},
				},
			},
		},
	},
}

// Tip is a short coaching explanation with the pages it was grounded on.
type Tip struct {
	Text    string   `json:"text"`
	Sources []Source `json:"sources,omitempty"`
}

// Options configure a Coach.
type Options struct {
	Timeout  time.Duration
	CacheTTL time.Duration
	// OnFallback, when set, is called with the operation name whenever a
	// fallback is served.
	OnFallback func(op string)
}

// Coach wraps a Model with timeouts, fallbacks and a tip cache. A nil
// model serves fallbacks only.
type Coach struct {
	model      Model
	log        *slog.Logger
	timeout    time.Duration
	cacheTTL   time.Duration
	cache      *freecache.Cache
	group      singleflight.Group
	onFallback func(op string)
}

func New(model Model, log *slog.Logger, opts Options) *Coach {
	if log == nil {
		log = slog.Default()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = DefaultCacheTTL
	}
	return &Coach{
		model:      model,
		log:        log,
		timeout:    opts.Timeout,
		cacheTTL:   opts.CacheTTL,
		cache:      freecache.NewCache(cacheSize),
		onFallback: opts.OnFallback,
	}
}

// Enabled reports whether a model is configured.
func (c *Coach) Enabled() bool { return c.model != nil }

func (c *Coach) generate(ctx context.Context, req Request) (*Response, error) {
	if c.model == nil {
		return nil, errors.New("no model configured")
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.model.Generate(ctx, req)
}

func (c *Coach) fallback(op string, err error) {
	c.log.Warn("coach fallback", "op", op, "error", err)
	if c.onFallback != nil {
		c.onFallback(op)
	}
}

// MotivationalQuote returns a short motivational phrase, or the first
// fallback quote when the model fails.
func (c *Coach) MotivationalQuote(ctx context.Context) string {
	resp, err := c.generate(ctx, Request{Prompt: quotePrompt})
	if err == nil {
		if q := strings.TrimSpace(resp.Text); q != "" {
			return q
		}
		err = ErrEmptyResponse
	}
	c.fallback("quote", err)
	return FallbackQuotes[0]
}

// ExerciseTip explains how to perform an exercise, grounded on web search.
// Successful tips are cached per name and concurrent calls for one name
// share a single request. Failures return FallbackTip and are not cached.
func (c *Coach) ExerciseTip(ctx context.Context, name string) Tip {
	name = strings.TrimSpace(name)
	if name == "" {
		return FallbackTip
	}
	key := []byte(strings.ToLower(name))
	if cached, err := c.cache.Get(key); err == nil {
		var tip Tip
		if json.Unmarshal(cached, &tip) == nil {
			return tip
		}
	}

	v, err, _ := c.group.Do(string(key), func() (any, error) {
		resp, err := c.generate(ctx, Request{
			System: tipSystem,
			Prompt: fmt.Sprintf(tipPrompt, name),
			Search: true,
		})
		if err != nil {
			return nil, err
		}
		tip := Tip{Text: strings.TrimSpace(resp.Text), Sources: resp.Sources}
		if tip.Text == "" {
			return nil, ErrEmptyResponse
		}
		if data, err := json.Marshal(tip); err == nil {
			if err := c.cache.Set(key, data, int(c.cacheTTL/time.Second)); err != nil {
				c.log.Debug("tip not cached", "exercise", name, "error", err)
			}
		}
		return tip, nil
	})
	if err != nil {
		c.fallback("tip", err)
		return FallbackTip
	}
	return v.(Tip)
}

// ScanWorkout reads a workout plan from an image. Any failure, including a
// response that does not match the schema, yields ErrScanFailed.
func (c *Coach) ScanWorkout(ctx context.Context, image []byte, mimeType string) (*models.ScannedWorkout, error) {
	if len(image) == 0 || len(image) > maxScanBytes {
		c.fallback("scan", fmt.Errorf("image size %d out of range", len(image)))
		return nil, ErrScanFailed
	}
	if mimeType == "" {
		mimeType = "image/png"
	}

	resp, err := c.generate(ctx, Request{
		Prompt:    scanPrompt,
		Image:     image,
		ImageMIME: mimeType,
		Schema:    scanSchema,
	})
	if err != nil {
		c.fallback("scan", err)
		return nil, ErrScanFailed
	}

	scan, err := decodeScan(resp.Text)
	if err != nil {
		c.fallback("scan", err)
		return nil, ErrScanFailed
	}
	return scan, nil
}

func decodeScan(text string) (*models.ScannedWorkout, error) {
	var raw struct {
		WorkoutName string `json:"workoutName"`
		Exercises   []struct {
			Name          string  `json:"name"`
			SetsCount     float64 `json:"setsCount"`
			RepsSuggested float64 `json:"repsSuggested"`
		} `json:"exercises"`
	}
	if err := json.Unmarshal([]byte(stripFences(text)), &raw); err != nil {
		return nil, fmt.Errorf("decoding scan: %w", err)
	}

	out := &models.ScannedWorkout{WorkoutName: strings.TrimSpace(raw.WorkoutName)}
	for _, e := range raw.Exercises {
		name := strings.TrimSpace(e.Name)
		if name == "" {
			continue
		}
		out.Exercises = append(out.Exercises, models.ScannedExercise{
			Name:          name,
			SetsCount:     max(int(math.Round(e.SetsCount)), 0),
			RepsSuggested: max(int(math.Round(e.RepsSuggested)), 0),
		})
	}
	if len(out.Exercises) == 0 {
		return nil, errors.New("scan found no exercises")
	}
	return out, nil
}
