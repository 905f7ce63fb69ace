// Package types contains common types used across the application
package types

import "fmt"

// Record is a win-loss-draw tally.
type Record struct {
	Wins   int `json:"wins" yaml:"wins"`
	Losses int `json:"losses" yaml:"losses"`
	Draws  int `json:"draws" yaml:"draws"`
}

// Add returns the sum of two records.
func (r Record) Add(o Record) Record {
	return Record{Wins: r.Wins + o.Wins, Losses: r.Losses + o.Losses, Draws: r.Draws + o.Draws}
}

// Matches is the number of decided and drawn matches in the record.
func (r Record) Matches() int { return r.Wins + r.Losses + r.Draws }

// String renders the record as W-L-D.
func (r Record) String() string {
	return fmt.Sprintf("%d-%d-%d", r.Wins, r.Losses, r.Draws)
}

// Entry represents a leaderboard row
type Entry struct {
	Rank       int     `json:"rank" yaml:"rank"`
	WrestlerID string  `json:"wrestler_id" yaml:"wrestler_id"`
	Name       string  `json:"name,omitempty" yaml:"name,omitempty"`
	Rating     float64 `json:"rating" yaml:"rating"`
	Deviation  float64 `json:"deviation" yaml:"deviation"`
	Volatility float64 `json:"volatility" yaml:"volatility"`
	Record     Record  `json:"record" yaml:"record"`
}
