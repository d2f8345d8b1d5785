package quality

// RunChecks evaluates every enabled detector against one exchange and
// returns the findings in a stable order. Detectors never fail: missing
// context fields degrade to a passing result instead of an error.
func RunChecks(ec Context, cfg Config) []Check {
	checks := make([]Check, 0, 5)

	if cfg.HallucinationEnabled {
		checks = append(checks, EvaluateHallucination(ec, cfg.Hallucination))
	}
	if cfg.RelevanceEnabled {
		checks = append(checks, EvaluateRelevance(ec, cfg.Relevance))
	}
	if cfg.ToxicityEnabled {
		checks = append(checks, EvaluateToxicity(ec, cfg.Toxicity))
	}
	if cfg.SentimentEnabled {
		checks = append(checks, EvaluateSentiment(ec))
	}
	if cfg.CoherenceEnabled {
		checks = append(checks, EvaluateCoherence(ec, cfg.Coherence))
	}

	return checks
}
