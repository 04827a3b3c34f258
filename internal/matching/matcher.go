package matching

import (
	"log/slog"

	"mubi1000/internal/identity"
	"mubi1000/internal/justwatch"
	"mubi1000/internal/logging"
)

// Scored is a candidate with its component scores.
type Scored struct {
	Candidate  justwatch.Candidate
	Index      int // position in the catalog response
	TitleScore float64
	YearScore  float64
}

// Total returns the combined score.
func (s Scored) Total() float64 {
	return s.TitleScore + s.YearScore
}

// ScoreCandidates scores every film candidate against target, preserving
// input order. Non-film hits (shows, seasons) are dropped.
func ScoreCandidates(target identity.MovieIdentity, candidates []justwatch.Candidate) []Scored {
	targetYear, hasYear := target.YearValue()
	scored := make([]Scored, 0, len(candidates))
	for idx, candidate := range candidates {
		if !candidate.IsMovie() {
			continue
		}
		entry := Scored{
			Candidate:  candidate,
			Index:      idx,
			TitleScore: TitleScore(target.Title, candidate.Title),
		}
		// Without a target year every candidate gets the same (zero) year
		// score, so the year does not influence the ranking.
		if hasYear {
			entry.YearScore = YearScore(targetYear, candidate.ReleaseYear)
		}
		scored = append(scored, entry)
	}
	return scored
}

// Match selects the catalog candidate for target, or returns ok=false when no
// candidate is acceptable.
func Match(logger *slog.Logger, target identity.MovieIdentity, candidates []justwatch.Candidate) (Scored, bool) {
	if logger == nil {
		logger = logging.NewNop()
	}
	scored := ScoreCandidates(target, candidates)
	if len(scored) == 0 {
		logger.Debug("no film candidates to score",
			logging.String(logging.FieldMovie, target.String()),
			logging.Int("total_results", len(candidates)))
		return Scored{}, false
	}

	best := 0
	for i := 1; i < len(scored); i++ {
		if scored[i].Total() > scored[best].Total() {
			best = i
		}
	}
	winner := scored[best]

	for i, entry := range scored {
		if i != best && entry.Total() == winner.Total() {
			attrs := logging.DecisionAttrs("match_ambiguous", "first_wins", "candidates share the top score")
			attrs = append(attrs,
				logging.String(logging.FieldMovie, target.String()),
				logging.String("kept", winner.Candidate.Title),
				logging.String("dropped", entry.Candidate.Title),
				logging.Int("dropped_index", entry.Index),
				logging.Float64("score", winner.Total()))
			logger.Debug("match tie broken by result order", logging.Args(attrs...)...)
			break
		}
	}

	_, yearScored := target.YearValue()
	attrs := []logging.Attr{
		logging.String(logging.FieldMovie, target.String()),
		logging.String("candidate", winner.Candidate.Title),
		logging.Int("candidate_index", winner.Index),
		logging.Int("candidate_year", winner.Candidate.ReleaseYear),
		logging.Float64("title_score", winner.TitleScore),
		logging.Float64("year_score", winner.YearScore),
		logging.Float64("score", winner.Total()),
		logging.Bool("year_scored", yearScored),
		logging.Int("film_candidates", len(scored)),
	}

	switch {
	case winner.Total() >= AcceptScore:
		logger.Debug("match accepted", logging.Args(append(attrs,
			logging.DecisionAttrs("catalog_match", "accepted", "score at or above threshold")...)...)...)
		return winner, true
	case len(scored) == 1 && winner.Total() >= AcceptSingleScore:
		logger.Debug("match accepted", logging.Args(append(attrs,
			logging.DecisionAttrs("catalog_match", "accepted", "only film candidate above single-result threshold")...)...)...)
		return winner, true
	default:
		logger.Debug("match rejected", logging.Args(append(attrs,
			logging.DecisionAttrs("catalog_match", "rejected", "score below threshold")...)...)...)
		return Scored{}, false
	}
}
