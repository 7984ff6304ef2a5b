package concession

import (
	"github.com/polemos-ai/polemos/internal/debate"
	"github.com/polemos-ai/polemos/pkg/provider/llm"
)

// steeringFor maps a concession tier to the LLM response mode and guidance
// sentence. FULL never reaches the LLM — the KO lane replaces the reply with
// the verdict — but the mapping is total anyway.
func steeringFor(tier debate.ConcessionTier) (llm.ResponseMode, string) {
	switch tier {
	case debate.TierSoft:
		return llm.ModeSoftConcede,
			"The user landed a real hit this turn. Acknowledge their strongest point explicitly before countering."
	case debate.TierPartial:
		return llm.ModePartialConcede,
			"The user refuted one of your claims. Concede that specific sub-claim and keep the thesis alive on other grounds."
	case debate.TierFull:
		return llm.ModeFullConcede,
			"The user's argument defeats the thesis. Admit it plainly in two or three sentences."
	default:
		return llm.ModeDefend, ""
	}
}

// promptState projects the mutable debate state into the read-only snapshot
// the LLM adapters inject into the system prompt.
func promptState(state *debate.DebateState) llm.State {
	return llm.State{
		Stance:    string(state.Stance),
		Topic:     state.Topic,
		Lang:      state.Lang,
		TurnIndex: state.AssistantTurns,
		Concluded: state.MatchConcluded,
	}
}

// mapHistory converts repository messages into the LLM role vocabulary.
func mapHistory(messages []debate.Message) []llm.Message {
	out := make([]llm.Message, 0, len(messages))
	for _, m := range messages {
		role := "user"
		if m.Role == debate.RoleBot {
			role = "assistant"
		}
		out = append(out, llm.Message{Role: role, Content: m.Text})
	}
	return out
}
