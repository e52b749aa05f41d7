package conversation

import "dockagent/internal/ir"

// QuestionEntrypoint asks which application object to launch.
const QuestionEntrypoint = "entrypoint_selection"

// BuildQuestions returns the questions that would close the gaps in snap.
// A question is built only from concrete candidates; nil means there is
// nothing the user could be asked.
func BuildQuestions(snap ir.Snapshot) []ir.Question {
	if snap.Entrypoint.Confidence == ir.High {
		return nil
	}

	var options []string
	for _, c := range snap.Stack.Candidates {
		if c.File == "" || c.Symbol == "" {
			continue
		}
		options = append(options, c.Ref())
	}
	if len(options) == 0 {
		return nil
	}

	return []ir.Question{{
		ID: QuestionEntrypoint,
		Prompt: "The production entrypoint could not be resolved from the repository. " +
			"Which application object should be used as the production entrypoint?",
		Options: options,
	}}
}
