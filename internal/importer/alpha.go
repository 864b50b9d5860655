package importer

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Line shapes of an Alpha Progression CSV export. Sessions are separated by
// blank lines; each holds exercise headers followed by their set rows.
var (
	// "Legs · Day 2";"2026-02-19 4:54 h";"1:02 hr"
	alphaSessionRe = regexp.MustCompile(`^"(.+)";"(\d{4}-\d{2}-\d{2}\s+\d+:\d+)\s+h";"(.+)"$`)

	// "1. Hack Squats · Machine · 8 reps[ · modifiers]"[;"warm-up info"]
	alphaExerciseRe = regexp.MustCompile(`^"(\d+)\.\s+(.+?)(?:\s+·\s+(\S.*?))?\s+·\s+(\d+)\s+reps(.*?)"(?:;"(.+)")?$`)

	// 1;115;8;1
	alphaSetRe = regexp.MustCompile(`^(\d+);(.+);(\d+);(.+)$`)

	// WU1 · 37,5 kg · 9 reps
	alphaWarmupRe = regexp.MustCompile(`WU(\d+)\s+·\s+(.+?)\s+kg\s+·\s+(\d+)\s+reps`)

	alphaDurationRe = regexp.MustCompile(`^(?:(\d+):(\d{2})\s*hr?|(\d+)\s*min)$`)
)

const alphaColumns = "#;KG;REPS;RIR"

// AlphaSession is one workout of an export.
type AlphaSession struct {
	Name      string
	Date      time.Time
	Duration  string
	Exercises []AlphaExercise
}

type AlphaExercise struct {
	Number     int
	Name       string
	Equipment  string
	TargetReps int
	Sets       []AlphaSet
}

type AlphaSet struct {
	Number         int
	WeightKg       float64
	BodyweightPlus bool
	Reps           int
	RIR            float64
	Warmup         bool
}

type alphaParser struct {
	loc      *time.Location
	sessions []AlphaSession
	session  *AlphaSession
	exercise *AlphaExercise
}

// ParseAlpha reads an export. Session times carry no zone and are read in
// loc; nil means UTC. Lines of unknown shape are ignored.
func ParseAlpha(r io.Reader, loc *time.Location) ([]AlphaSession, error) {
	if loc == nil {
		loc = time.UTC
	}
	p := &alphaParser{loc: loc}
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if err := p.line(strings.TrimSpace(scanner.Text())); err != nil {
			return nil, err
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading export: %w", err)
	}
	p.endSession()
	return p.sessions, nil
}

func (p *alphaParser) line(line string) error {
	switch {
	case line == "":
		p.endSession()
	case line == alphaColumns:
	case alphaSessionRe.MatchString(line):
		m := alphaSessionRe.FindStringSubmatch(line)
		p.endSession()
		date, err := p.parseDate(m[2])
		if err != nil {
			return err
		}
		p.session = &AlphaSession{Name: m[1], Date: date, Duration: m[3]}
	case alphaExerciseRe.MatchString(line):
		m := alphaExerciseRe.FindStringSubmatch(line)
		if p.session == nil {
			return fmt.Errorf("exercise without session: %q", line)
		}
		p.endExercise()
		num, _ := strconv.Atoi(m[1])
		target, _ := strconv.Atoi(m[4])
		p.exercise = &AlphaExercise{
			Number:     num,
			Name:       strings.TrimSpace(m[2]),
			Equipment:  strings.TrimSpace(m[3]),
			TargetReps: target,
			Sets:       parseWarmups(m[6]),
		}
	case alphaSetRe.MatchString(line):
		m := alphaSetRe.FindStringSubmatch(line)
		if p.exercise == nil {
			return fmt.Errorf("set without exercise: %q", line)
		}
		num, _ := strconv.Atoi(m[1])
		weight, bw := parseWeight(m[2])
		reps, _ := strconv.Atoi(m[3])
		p.exercise.Sets = append(p.exercise.Sets, AlphaSet{
			Number:         num,
			WeightKg:       weight,
			BodyweightPlus: bw,
			Reps:           reps,
			RIR:            parseDecimal(m[4]),
		})
	}
	return nil
}

func (p *alphaParser) endExercise() {
	if p.exercise != nil {
		p.session.Exercises = append(p.session.Exercises, *p.exercise)
		p.exercise = nil
	}
}

func (p *alphaParser) endSession() {
	if p.session == nil {
		return
	}
	p.endExercise()
	p.sessions = append(p.sessions, *p.session)
	p.session = nil
}

// parseDate accepts both "2026-02-19 4:54" and "2026-02-19 16:54".
func (p *alphaParser) parseDate(s string) (time.Time, error) {
	s = strings.Join(strings.Fields(s), " ")
	for _, layout := range []string{"2006-01-02 15:04", "2006-01-02 3:04"} {
		if t, err := time.ParseInLocation(layout, s, p.loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("parsing session date %q", s)
}

// parseWarmups reads "WU1 · 37,5 kg · 9 reps<br>WU2 · ..." into warm-up sets.
func parseWarmups(s string) []AlphaSet {
	var sets []AlphaSet
	for _, part := range strings.Split(s, "<br>") {
		m := alphaWarmupRe.FindStringSubmatch(part)
		if m == nil {
			continue
		}
		num, _ := strconv.Atoi(m[1])
		weight, bw := parseWeight(m[2])
		reps, _ := strconv.Atoi(m[3])
		sets = append(sets, AlphaSet{Number: num, WeightKg: weight, BodyweightPlus: bw, Reps: reps, Warmup: true})
	}
	return sets
}

// parseWeight handles "102,5" and the bodyweight-plus form "+35".
func parseWeight(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if rest, ok := strings.CutPrefix(s, "+"); ok {
		return parseDecimal(rest), true
	}
	return parseDecimal(s), false
}

// parseDecimal reads a number with a comma decimal separator. Garbage reads as 0.
func parseDecimal(s string) float64 {
	f, _ := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(s), ",", "."), 64)
	return f
}

// parseAlphaDuration reads "1:02 hr" or "45 min". Unknown forms yield 0.
func parseAlphaDuration(s string) time.Duration {
	m := alphaDurationRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0
	}
	if m[3] != "" {
		mins, _ := strconv.Atoi(m[3])
		return time.Duration(mins) * time.Minute
	}
	h, _ := strconv.Atoi(m[1])
	mins, _ := strconv.Atoi(m[2])
	return time.Duration(h)*time.Hour + time.Duration(mins)*time.Minute
}
