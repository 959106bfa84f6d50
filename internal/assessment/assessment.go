// Package assessment scores the ten-question wellbeing check-in. The result
// is a rough guide for the conversation, not a diagnosis.
package assessment

import (
	"fmt"
	"math"
	"slices"
)

// Category groups questions for the per-area breakdown.
type Category string

const (
	Mood     Category = "mood"
	Anxiety  Category = "anxiety"
	Energy   Category = "energy"
	Social   Category = "social"
	Thoughts Category = "thoughts"
)

// Categories lists every category in breakdown order. Ties for the primary
// concern go to the earliest one.
var Categories = []Category{Mood, Anxiety, Energy, Social, Thoughts}

var concerns = map[Category]string{
	Mood:     "depressive symptoms",
	Anxiety:  "anxiety symptoms",
	Energy:   "fatigue and energy levels",
	Social:   "social disconnection",
	Thoughts: "troubling thoughts",
}

// Concern returns the readable description of c.
func (c Category) Concern() string { return concerns[c] }

// Severity is the overall band derived from the total score.
type Severity int

const (
	Minimal Severity = iota
	Mild
	Moderate
	Severe
)

func (s Severity) String() string {
	switch s {
	case Mild:
		return "mild"
	case Moderate:
		return "moderate"
	case Severe:
		return "severe"
	default:
		return "minimal"
	}
}

// Option is one answer to a Question.
type Option struct {
	Value string
	Label string
	Score int
}

// Question is a single multiple-choice item.
type Question struct {
	ID       string
	Text     string
	Category Category
	Options  []Option
}

// Option returns the option with the given value.
func (q Question) Option(value string) (Option, bool) {
	for _, o := range q.Options {
		if o.Value == value {
			return o, true
		}
	}
	return Option{}, false
}

func frequency(scores ...int) []Option {
	labels := []struct{ value, label string }{
		{"never", "Never"}, {"rarely", "Rarely"}, {"sometimes", "Sometimes"}, {"often", "Often"},
	}
	opts := make([]Option, len(labels))
	for i, l := range labels {
		opts[i] = Option{Value: l.value, Label: l.label, Score: scores[i]}
	}
	return opts
}

// Questions is the check-in in the order it is asked.
var Questions = []Question{
	{
		ID: "feeling", Text: "How have you been feeling lately?", Category: Mood,
		Options: []Option{
			{"normal", "Normal", 0},
			{"good", "Good", 0},
			{"bad", "Bad", 2},
			{"very_bad", "Very Bad", 3},
		},
	},
	{
		ID: "sleep", Text: "How often have you had trouble sleeping in the past month?", Category: Energy,
		Options: frequency(0, 1, 2, 3),
	},
	{
		ID: "appetite", Text: "How has your appetite been recently?", Category: Energy,
		Options: []Option{
			{"much_more", "Much more than usual", 2},
			{"more", "More than usual", 1},
			{"same", "About the same", 0},
			{"less", "Less than usual", 3},
		},
	},
	{
		ID: "concentration", Text: "How often do you find it hard to concentrate on tasks?", Category: Thoughts,
		Options: frequency(0, 1, 2, 3),
	},
	{
		ID: "interest", Text: "How interested are you in activities you used to enjoy?", Category: Mood,
		Options: []Option{
			{"very_interested", "Very interested", 0},
			{"interested", "Interested", 1},
			{"neutral", "Neutral", 2},
			{"less_interested", "Less interested", 3},
		},
	},
	{
		ID: "anger", Text: "How often do you feel irritable or angry?", Category: Mood,
		Options: []Option{
			{"never", "Never", 0},
			{"rarely", "Rarely", 1},
			{"neutral", "Sometimes", 2},
			{"often", "Often", 3},
		},
	},
	{
		ID: "anxiety", Text: "How frequently do you feel anxious, worried, or on edge?", Category: Anxiety,
		Options: frequency(0, 1, 2, 3),
	},
	{
		ID: "suicidal", Text: "Have you had thoughts of self-harm or suicide in the past month?", Category: Thoughts,
		Options: []Option{
			{"never", "Never", 0},
			{"once_twice", "Once or twice", 2},
			{"sometimes", "Sometimes", 3},
			{"often", "Often", 5},
		},
	},
	{
		ID: "disconnected", Text: "Do you feel disconnected from yourself or the world around you?", Category: Social,
		Options: frequency(0, 1, 2, 3),
	},
	{
		ID: "coping", Text: "How effective are your coping strategies when dealing with stress?", Category: Anxiety,
		Options: []Option{
			{"very_effective", "Very effective", 0},
			{"effective", "Effective", 1},
			{"neutral", "Neutral", 2},
			{"ineffective", "Ineffective", 3},
		},
	},
}

// MaxScore is the total when every question gets its highest-scoring answer.
func MaxScore() int {
	total := 0
	for _, q := range Questions {
		best := 0
		for _, o := range q.Options {
			best = max(best, o.Score)
		}
		total += best
	}
	return total
}

// Answers maps question IDs to option values.
type Answers map[string]string

// Result is the scored check-in.
type Result struct {
	OverallScore int
	// CategoryScores is the mean answer score per category, rounded to two
	// decimals. Categories with no answers score 0.
	CategoryScores    map[Category]float64
	Severity          Severity
	PrimaryConcern    Category
	SuggestedApproach string
	RiskFactors       []string
}

const selfHarmFactor = "thoughts of self-harm or suicide"

// NeedsCrisisSupport reports whether crisis resources should be shown with
// the result: a severe band or any reported thoughts of self-harm.
func (r Result) NeedsCrisisSupport() bool {
	return r.Severity == Severe || slices.Contains(r.RiskFactors, selfHarmFactor)
}

// riskFactors are flagged by single answers, in report order.
var riskFactors = []struct {
	question string
	values   []string
	label    string
}{
	{"suicidal", []string{"once_twice", "sometimes", "often"}, selfHarmFactor},
	{"sleep", []string{"often"}, "significant sleep disturbance"},
	{"interest", []string{"less_interested"}, "loss of interest in activities"},
	{"anxiety", []string{"often"}, "frequent anxiety"},
	{"concentration", []string{"often"}, "difficulty concentrating"},
	{"disconnected", []string{"often"}, "feelings of disconnection"},
}

// Score computes the result for answers. Unanswered questions and unknown
// option values are ignored.
func Score(answers Answers) Result {
	sums := make(map[Category]int, len(Categories))
	counts := make(map[Category]int, len(Categories))
	overall := 0

	for _, q := range Questions {
		o, ok := q.Option(answers[q.ID])
		if !ok {
			continue
		}
		overall += o.Score
		sums[q.Category] += o.Score
		counts[q.Category]++
	}

	res := Result{
		OverallScore:   overall,
		CategoryScores: make(map[Category]float64, len(Categories)),
	}

	highest := -1.0
	for _, c := range Categories {
		avg := 0.0
		if counts[c] > 0 {
			avg = math.Round(float64(sums[c])/float64(counts[c])*100) / 100
		}
		res.CategoryScores[c] = avg
		if avg > highest {
			highest = avg
			res.PrimaryConcern = c
		}
	}

	res.Severity = severity(overall)
	if v := answers["suicidal"]; v == "sometimes" || v == "often" {
		res.Severity = Severe
	}
	res.SuggestedApproach = approach(res.Severity, res.PrimaryConcern)

	for _, rf := range riskFactors {
		v := answers[rf.question]
		for _, want := range rf.values {
			if v == want {
				res.RiskFactors = append(res.RiskFactors, rf.label)
				break
			}
		}
	}
	return res
}

// severity bands the total at 25%, 50% and 75% of MaxScore.
func severity(score int) Severity {
	pct := float64(score) / float64(MaxScore()) * 100
	switch {
	case pct < 25:
		return Minimal
	case pct < 50:
		return Mild
	case pct < 75:
		return Moderate
	default:
		return Severe
	}
}

func approach(s Severity, c Category) string {
	concern := c.Concern()
	switch s {
	case Mild:
		return fmt.Sprintf("Your responses suggest mild %s. The chat support can offer coping strategies, and you might consider speaking with a wellness coach or counselor.", concern)
	case Moderate:
		return fmt.Sprintf("Your responses indicate moderate %s. The chat support can provide immediate strategies, but consider consulting a mental health professional for additional support.", concern)
	case Severe:
		return fmt.Sprintf("Your responses suggest significant %s. While our chat support is available, we strongly recommend speaking with a mental health professional as soon as possible.", concern)
	default:
		return "Your responses suggest you are managing well overall. The chat support can provide wellness tips and stress management techniques if needed."
	}
}
