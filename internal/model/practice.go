package model

import "strings"

type Kind string

const (
	KindFitness  Kind = "fitness"
	KindStudy    Kind = "study"
	KindReligion Kind = "religion"
	KindMicro    Kind = "micro"
	KindHobby    Kind = "hobby"
	KindGeneric  Kind = "generic"
)

// ParseKind maps unknown or empty kinds to KindGeneric.
func ParseKind(s string) Kind {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindFitness, KindStudy, KindReligion, KindMicro, KindHobby:
		return k
	default:
		return KindGeneric
	}
}

// PracticeConfig holds kind-specific parameters. Zero values mean "use the default".
type PracticeConfig struct {
	YogaMinutes        int      `yaml:"yoga_minutes" json:"yogaMinutes,omitempty"`
	MuscleMinutes      int      `yaml:"muscle_minutes" json:"muscleMinutes,omitempty"`
	Minutes            int      `yaml:"minutes" json:"minutes,omitempty"`
	ReflectionMinWords int      `yaml:"reflection_min_words" json:"reflectionMinWords,omitempty"`
	Topics             []string `yaml:"topics" json:"topics,omitempty"`
	Plan               string   `yaml:"plan" json:"plan,omitempty"`
	Syllabus           []string `yaml:"syllabus" json:"syllabus,omitempty"`
}

type Practice struct {
	Slug   string         `yaml:"slug" json:"slug"`
	Kind   Kind           `yaml:"kind" json:"kind"`
	Title  string         `yaml:"title" json:"title"`
	Config PracticeConfig `yaml:"config" json:"config"`
}

type User struct {
	Name string `yaml:"name" json:"name"`
}

// UnknownPractice is what a slug resolves to when it is not configured.
func UnknownPractice(slug string) Practice {
	return Practice{Slug: slug, Kind: KindGeneric, Title: slug}
}

// FitnessBaseline is the minutes target for a fitness practice (yoga + muscle, 10 each by default).
func (c PracticeConfig) FitnessBaseline() int {
	return orDefault(c.YogaMinutes, 10) + orDefault(c.MuscleMinutes, 10)
}

func (c PracticeConfig) HobbyBaseline() int {
	return orDefault(c.Minutes, 10)
}

func (c PracticeConfig) ReflectionWords() int {
	return orDefault(c.ReflectionMinWords, 40)
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
