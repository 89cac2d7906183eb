package generator

import "github.com/Leumas-Tech/leumas-education/internal/model"

func DefaultTitle(practiceTitle, date string) string {
	return practiceTitle + " — " + date
}

func DefaultSteps() []model.Step {
	return []model.Step{{Label: "Read the brief"}, {Label: "Do the 2-minute task"}}
}

// SumExercise is the canonical study exercise used when none was produced.
func SumExercise() model.Exercise {
	return model.Exercise{
		Title:        "Two-minute array task",
		Instructions: "Write a JavaScript function `sum` that returns the sum of all numbers in an array. If the array is empty, return 0.",
		StarterCode:  "function sum(arr){\n  // your code\n}\nconsole.log(sum([1,2,3])); // 6",
		AnswerKey:    "Loop or reduce, return 0 for [].",
	}
}

// Fallback is the deterministic minimal task used when generation fails.
func Fallback(req Request) Content {
	c := Content{
		Title: DefaultTitle(req.Title, req.Date),
		Brief: "Quick brief: focus on one tiny idea and try a two-minute task.",
		Exercise: &model.Exercise{
			Title:        "Two-minute task",
			Instructions: "Do one tiny example that uses the idea.",
		},
		Steps: DefaultSteps(),
	}

	switch req.Kind {
	case model.KindStudy:
		ex := SumExercise()
		c.Exercise = &ex
		c.Acceptance = model.Accept(model.Problem{
			MinScore: model.DefaultProblemMinScore,
			Kind:     model.ProblemCode,
			Prompt:   ex.Instructions,
		})
	case model.KindMicro:
		c.Acceptance = model.Accept(model.Problem{
			MinScore: model.DefaultProblemMinScore,
			Kind:     model.ProblemConcept,
			Prompt:   "Explain today's idea in your own words with one example.",
		})
	case model.KindReligion:
		c.Exercise = nil
		c.Acceptance = model.Accept(model.Text{MinWords: req.Config.ReflectionWords()})
	case model.KindFitness:
		c.Exercise = nil
		c.Acceptance = model.Accept(model.Minutes{Baseline: float64(req.Config.FitnessBaseline())})
	case model.KindHobby:
		c.Exercise = nil
		c.Acceptance = model.Accept(model.Minutes{Baseline: float64(req.Config.HobbyBaseline())})
	default:
		c.Acceptance = model.Accept(model.Checkbox{})
	}
	return c
}
