// Package scoring computes the quantitative metrics of an analysis:
// layout complexity, content coverage, section structure and the overall score.
package scoring

import (
	"fmt"
	"math"

	"atslens/internal/matcher"
	"atslens/internal/types"
)

// Complexity weights
const (
	ImageBase       = 15.0
	ImageStep       = 2.0
	ImageStepCap    = 10.0
	TableBase       = 15.0
	TableStep       = 3.0
	TableStepCap    = 15.0
	MultiColumnBase = 20.0
	MultiColumnLoad = 20.0
	HeaderFooter    = 10.0
	MaxScore        = 100.0
)

// Complexity labels and their upper bounds
const (
	LabelSimple      = "simple"
	LabelModerate    = "moderate"
	LabelComplex     = "complex"
	LabelVeryComplex = "very_complex"

	SimpleMax   = 20.0
	ModerateMax = 40.0
	ComplexMax  = 70.0
)

// Structure weights
const (
	ContactPoints      = 25.0
	BothContactPoints  = 5.0
	ExperiencePoints   = 25.0
	EducationPoints    = 20.0
	SkillsPoints       = 20.0
	EntryBonusCap      = 5.0
	SkillBonusPerSkill = 0.5
)

// Overall weights
const (
	ComplexityWeight = 0.30
	CoverageWeight   = 0.35
	StructureWeight  = 0.35
)

// Complexity scores how hard a layout is to parse. Higher is worse.
func Complexity(d types.LayoutDiagnostics) types.ComplexityMetric {
	m := types.ComplexityMetric{Factors: []string{}}

	if images := d.ImageCount; d.HasImages || images > 0 {
		images = max(images, 1)
		m.Score += ImageBase + math.Min(float64(images-1)*ImageStep, ImageStepCap)
		m.Factors = append(m.Factors, fmt.Sprintf("%d image(s)", images))
	}
	if tables := d.TableCount; d.HasTables || tables > 0 {
		tables = max(tables, 1)
		m.Score += TableBase + math.Min(float64(tables-1)*TableStep, TableStepCap)
		m.Factors = append(m.Factors, fmt.Sprintf("%d table(s)", tables))
	}
	if d.HasMultiColumn {
		m.Score += MultiColumnBase + d.SecondaryColumnRatio*MultiColumnLoad
		m.Factors = append(m.Factors, fmt.Sprintf("multi-column layout (%.0f%% secondary)", d.SecondaryColumnRatio*100))
	}
	if d.HasHeadersFooters {
		m.Score += HeaderFooter
		m.Factors = append(m.Factors, "headers/footers")
	}

	m.Score = round1(math.Min(m.Score, MaxScore))
	m.Label = ComplexityLabel(m.Score)
	return m
}

// ComplexityLabel names a complexity score
func ComplexityLabel(score float64) string {
	switch {
	case score <= SimpleMax:
		return LabelSimple
	case score <= ModerateMax:
		return LabelModerate
	case score <= ComplexMax:
		return LabelComplex
	default:
		return LabelVeryComplex
	}
}

// Coverage converts a matcher partition into the coverage metric
func Coverage(res matcher.Result) types.ContentCoverageMetric {
	c := res.Coverage()
	c.Score = round1(c.Score)
	return c
}

// Structure scores the presence of the standard sections in the fields
func Structure(f *types.ParsedFields) types.StructureMetric {
	if f == nil {
		f = &types.ParsedFields{}
	}
	s := types.StructureMetric{
		HasEmail:        f.HasEmail(),
		HasPhone:        f.HasPhone(),
		ExperienceCount: len(f.Experience),
		EducationCount:  len(f.Education),
		SkillsCount:     len(f.Skills),
		Missing:         []string{},
	}
	s.HasContact = s.HasEmail || s.HasPhone
	s.HasExperience = s.ExperienceCount > 0
	s.HasEducation = s.EducationCount > 0
	s.HasSkills = s.SkillsCount > 0

	if s.HasContact {
		s.Score += ContactPoints
		if s.HasEmail && s.HasPhone {
			s.Score += BothContactPoints
		}
	} else {
		s.Missing = append(s.Missing, string(types.SectionContact))
	}
	if s.HasExperience {
		s.Score += ExperiencePoints + math.Min(float64(s.ExperienceCount), EntryBonusCap)
	} else {
		s.Missing = append(s.Missing, string(types.SectionExperience))
	}
	if s.HasEducation {
		s.Score += EducationPoints + math.Min(float64(s.EducationCount), EntryBonusCap)
	} else {
		s.Missing = append(s.Missing, string(types.SectionEducation))
	}
	if s.HasSkills {
		s.Score += SkillsPoints + math.Min(float64(s.SkillsCount)*SkillBonusPerSkill, EntryBonusCap)
	} else {
		s.Missing = append(s.Missing, string(types.SectionSkills))
	}

	s.Score = round1(math.Min(s.Score, MaxScore))
	return s
}

// Overall blends the three scores; complexity counts against the result
func Overall(complexity, coverage, structure float64) float64 {
	return round1((MaxScore-complexity)*ComplexityWeight + coverage*CoverageWeight + structure*StructureWeight)
}

// Compute builds every metric for one analysis
func Compute(d types.LayoutDiagnostics, res matcher.Result, f *types.ParsedFields) types.Metrics {
	m := types.Metrics{
		Complexity: Complexity(d),
		Coverage:   Coverage(res),
		Structure:  Structure(f),
	}
	m.Overall = Overall(m.Complexity.Score, m.Coverage.Score, m.Structure.Score)
	return m
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
