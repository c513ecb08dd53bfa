package store

import (
	"context"
	"fmt"
	"strconv"
	"time"
)

// RetentionPolicy decides which runs to keep.
type RetentionPolicy interface {
	Apply(runs []Run) (keep []Run)
}

// CountPolicy keeps the N most recent runs.
type CountPolicy struct {
	MaxCount int
}

// Apply keeps the first MaxCount runs (assumed sorted newest-first).
func (p *CountPolicy) Apply(runs []Run) []Run {
	if p.MaxCount < 0 {
		return nil
	}
	if len(runs) <= p.MaxCount {
		return runs
	}
	return runs[:p.MaxCount]
}

// AgePolicy keeps runs newer than MaxAge.
type AgePolicy struct {
	MaxAge time.Duration
}

// Apply keeps runs whose CreatedAt is within MaxAge of now.
func (p *AgePolicy) Apply(runs []Run) []Run {
	cutoff := time.Now().Add(-p.MaxAge)
	var keep []Run
	for _, r := range runs {
		if r.CreatedAt.After(cutoff) {
			keep = append(keep, r)
		}
	}
	return keep
}

// CompositePolicy keeps a run if ANY sub-policy wants it (union).
type CompositePolicy struct {
	Policies []RetentionPolicy
}

// Apply returns the union of runs kept by any sub-policy, in input order.
func (p *CompositePolicy) Apply(runs []Run) []Run {
	kept := make(map[string]bool)
	for _, policy := range p.Policies {
		for _, r := range policy.Apply(runs) {
			kept[r.ID] = true
		}
	}

	var result []Run
	for _, r := range runs {
		if kept[r.ID] {
			result = append(result, r)
		}
	}
	return result
}

// ApplyRetention deletes runs not kept by the policy and returns their ids.
func (s *RunStore) ApplyRetention(ctx context.Context, policy RetentionPolicy) (deleted []string, err error) {
	runs, err := s.ListRuns(ctx)
	if err != nil {
		return nil, err
	}

	keep := policy.Apply(runs)
	keepSet := make(map[string]bool, len(keep))
	for _, r := range keep {
		keepSet[r.ID] = true
	}

	for _, r := range runs {
		if keepSet[r.ID] {
			continue
		}
		if err := s.DeleteRun(ctx, r.ID); err != nil {
			return deleted, fmt.Errorf("removing run %s: %w", r.ID, err)
		}
		deleted = append(deleted, r.ID)
	}

	return deleted, nil
}

// ParseDuration parses duration strings like "30d", "2w", "720h".
func ParseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, fmt.Errorf("empty duration string")
	}

	if d, err := time.ParseDuration(s); err == nil {
		return d, nil
	}

	if len(s) < 2 {
		return 0, fmt.Errorf("invalid duration: %q", s)
	}

	suffix := s[len(s)-1]
	num, err := strconv.Atoi(s[:len(s)-1])
	if err != nil || num < 0 {
		return 0, fmt.Errorf("invalid duration: %q", s)
	}

	switch suffix {
	case 'd':
		return time.Duration(num) * 24 * time.Hour, nil
	case 'w':
		return time.Duration(num) * 7 * 24 * time.Hour, nil
	default:
		return 0, fmt.Errorf("unknown duration suffix %q in %q", string(suffix), s)
	}
}
