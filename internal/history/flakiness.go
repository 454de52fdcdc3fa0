package history

import "github.com/ShayCichocki/gatecheck/pkg/models"

// DetectFlakiness compares a passing current result against the most
// recent failed run at the same tree identity and returns the names of
// steps that failed then but pass now.
//
// Nothing is reported when the current run did not pass: a failing run
// is just failing. Nothing is reported when history holds no failed run.
func DetectFlakiness(note *Note, current *models.ValidationResult) []string {
	if current == nil || !current.Passed || note == nil {
		return nil
	}

	var failed *Run
	for i := len(note.Runs) - 1; i >= 0; i-- {
		if !note.Runs[i].Passed && note.Runs[i].Result != nil {
			failed = &note.Runs[i]
			break
		}
	}
	if failed == nil {
		return nil
	}

	var flaky []string
	for _, phase := range failed.Result.Phases {
		for _, step := range phase.Steps {
			if step.Status != models.StepFailed && step.Status != models.StepTimedOut {
				continue
			}
			now := current.StepByName(step.Name)
			if now != nil && now.Status == models.StepPassed {
				flaky = append(flaky, step.Name)
			}
		}
	}
	return flaky
}
