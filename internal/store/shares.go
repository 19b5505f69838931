package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/gobwas/glob"
	"github.com/google/uuid"

	"github.com/roach88/mockset/internal/canon"
	"github.com/roach88/mockset/internal/dataset"
)

// ErrShareNotFound is returned when a share id matches no record.
var ErrShareNotFound = errors.New("share not found")

// Share assigns an overlay stack to a target for one dataset.
type Share struct {
	ID       string     `json:"id"`
	Seq      int64      `json:"seq"`
	Target   string     `json:"target"`
	Kind     TargetKind `json:"kind"`
	Dataset  string     `json:"dataset"`
	Overlays []string   `json:"overlays"`
	Active   bool       `json:"active"`
}

// CreateShare records a new active share. The target is normalized and
// classified by ParseTarget. The record gets a fresh UUIDv7 id and the next
// seq.
func (s *Store) CreateShare(ctx context.Context, target, datasetID string, overlays []string) (Share, error) {
	norm, kind, err := ParseTarget(target)
	if err != nil {
		return Share{}, fmt.Errorf("create share: %w", err)
	}
	if overlays == nil {
		overlays = []string{}
	}
	stackJSON, err := marshalStack(overlays)
	if err != nil {
		return Share{}, fmt.Errorf("create share: %w", err)
	}
	id, err := uuid.NewV7()
	if err != nil {
		return Share{}, fmt.Errorf("create share: generate id: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Share{}, fmt.Errorf("create share: %w", err)
	}
	defer tx.Rollback()

	var seq int64
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) + 1 FROM shares`).Scan(&seq); err != nil {
		return Share{}, fmt.Errorf("create share: next seq: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO shares (id, seq, target, target_kind, dataset, overlays, active)
		VALUES (?, ?, ?, ?, ?, ?, 1)
	`, id.String(), seq, norm, string(kind), datasetID, stackJSON)
	if err != nil {
		return Share{}, fmt.Errorf("create share: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return Share{}, fmt.Errorf("create share: commit: %w", err)
	}

	slog.Debug("share created", "id", id.String(), "seq", seq, "target", norm, "kind", kind, "dataset", datasetID)
	return Share{
		ID:       id.String(),
		Seq:      seq,
		Target:   norm,
		Kind:     kind,
		Dataset:  datasetID,
		Overlays: overlays,
		Active:   true,
	}, nil
}

// DeactivateShare marks a share inactive. Deactivating an inactive share is
// a no-op; an unknown id returns ErrShareNotFound.
func (s *Store) DeactivateShare(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE shares SET active = 0 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deactivate share: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deactivate share: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("deactivate share %s: %w", id, ErrShareNotFound)
	}
	return nil
}

// GetShare returns the share with the given id.
func (s *Store) GetShare(ctx context.Context, id string) (Share, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, seq, target, target_kind, dataset, overlays, active
		FROM shares
		WHERE id = ?
	`, id)
	sh, err := scanShare(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Share{}, fmt.Errorf("get share %s: %w", id, ErrShareNotFound)
	}
	if err != nil {
		return Share{}, fmt.Errorf("get share %s: %w", id, err)
	}
	return sh, nil
}

// ListShares returns every share for a dataset, active or not, in seq
// order. An empty dataset lists all shares.
//
// Returns an empty slice (not nil) if there are none.
func (s *Store) ListShares(ctx context.Context, datasetID string) ([]Share, error) {
	query := `
		SELECT id, seq, target, target_kind, dataset, overlays, active
		FROM shares
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`
	var args []any
	if datasetID != "" {
		query = `
		SELECT id, seq, target, target_kind, dataset, overlays, active
		FROM shares
		WHERE dataset = ?
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`
		args = append(args, datasetID)
	}
	return s.queryShares(ctx, query, args...)
}

// ResolveShare finds the share deciding target's stack for a dataset, or
// nil if none applies.
//
// Tiers are tried in order and the most recent active record wins within a
// tier:
//  1. an email share equal to target
//  2. a domain share equal to target's domain (or to target itself when it
//     is a bare domain)
//  3. a glob share matching target
func (s *Store) ResolveShare(ctx context.Context, target, datasetID string) (*Share, error) {
	norm, kind, err := ParseTarget(target)
	if err != nil {
		return nil, fmt.Errorf("resolve share: %w", err)
	}
	if kind == TargetGlob {
		return nil, fmt.Errorf("resolve share: %w: %q is a pattern, not an identity", ErrInvalidTarget, target)
	}

	// Newest first so the first hit in each tier is the winner.
	shares, err := s.queryShares(ctx, `
		SELECT id, seq, target, target_kind, dataset, overlays, active
		FROM shares
		WHERE dataset = ? AND active = 1
		ORDER BY seq DESC, id COLLATE BINARY DESC
	`, datasetID)
	if err != nil {
		return nil, fmt.Errorf("resolve share: %w", err)
	}

	domain := norm
	if kind == TargetEmail {
		domain, _ = emailDomain(norm)
	}

	tiers := []func(Share) bool{
		func(sh Share) bool { return kind == TargetEmail && sh.Kind == TargetEmail && sh.Target == norm },
		func(sh Share) bool { return sh.Kind == TargetDomain && sh.Target == domain },
		func(sh Share) bool {
			if sh.Kind != TargetGlob {
				return false
			}
			g, err := glob.Compile(sh.Target)
			if err != nil {
				slog.Warn("skipping share with invalid glob", "id", sh.ID, "target", sh.Target, "error", err)
				return false
			}
			return g.Match(norm)
		},
	}
	for tier, match := range tiers {
		for i := range shares {
			if match(shares[i]) {
				slog.Debug("share resolved", "target", norm, "dataset", datasetID, "share", shares[i].ID, "tier", tier+1)
				return &shares[i], nil
			}
		}
	}
	return nil, nil
}

// ResolveStack returns the overlay stack shared with target, or an empty
// stack when no share applies.
func (s *Store) ResolveStack(ctx context.Context, target, datasetID string) ([]string, error) {
	sh, err := s.ResolveShare(ctx, target, datasetID)
	if err != nil {
		return nil, err
	}
	if sh == nil {
		return []string{}, nil
	}
	return sh.Overlays, nil
}

func (s *Store) queryShares(ctx context.Context, query string, args ...any) ([]Share, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query shares: %w", err)
	}
	defer rows.Close()

	shares := []Share{}
	for rows.Next() {
		sh, err := scanShare(rows)
		if err != nil {
			return nil, err
		}
		shares = append(shares, sh)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate shares: %w", err)
	}
	return shares, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanShare(sc scanner) (Share, error) {
	var (
		sh        Share
		kind      string
		stackJSON string
		active    int
	)
	if err := sc.Scan(&sh.ID, &sh.Seq, &sh.Target, &kind, &sh.Dataset, &stackJSON, &active); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Share{}, err
		}
		return Share{}, fmt.Errorf("scan share: %w", err)
	}
	stack, err := unmarshalStack(stackJSON)
	if err != nil {
		return Share{}, fmt.Errorf("scan share %s: %w", sh.ID, err)
	}
	sh.Kind = TargetKind(kind)
	sh.Overlays = stack
	sh.Active = active == 1
	return sh, nil
}

// marshalStack converts a stack to canonical JSON TEXT for storage.
func marshalStack(stack []string) (string, error) {
	data, err := canon.MarshalCanonical(stack)
	if err != nil {
		return "", fmt.Errorf("marshal stack: %w", err)
	}
	return string(data), nil
}

func unmarshalStack(data string) ([]string, error) {
	stack := []string{}
	if err := dataset.Unmarshal([]byte(data), &stack); err != nil {
		return nil, fmt.Errorf("unmarshal stack: %w", err)
	}
	return stack, nil
}
