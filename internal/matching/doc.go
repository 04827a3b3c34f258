// Package matching scores catalog search hits against a movie's title and year
// and selects at most one of them.
//
// Scores are title (1.0 exact, 0.5 containment) plus year proximity (1.0, 0.7,
// 0.3). The best candidate is accepted when it reaches 1.0, or when it is the
// only film returned and reaches 0.5. Equal scores keep the earlier candidate.
// The thresholds are empirical; changing them changes which films are
// reported as streamable, so treat them as fixed.
package matching
