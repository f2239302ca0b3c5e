package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"reshalka/api/internal/solve"
)

var ErrNotFound = sql.ErrNoRows

const schema = `
create table if not exists solutions_cache (
  image_hash    text        not null,
  engine        text        not null,
  model         text        not null,
  solution_json jsonb       not null,
  created_at    timestamptz not null default now(),
  primary key (image_hash, engine, model)
)`

// Key - по какому изображению и какой моделью получено решение.
type Key struct {
	ImageHash string
	Engine    string
	Model     string
}

type SolutionRepo struct {
	DB *sql.DB
	// MaxAge > 0 - записи старше считаются отсутствующими.
	MaxAge time.Duration
}

func NewSolutionRepo(db *sql.DB, maxAge time.Duration) *SolutionRepo {
	return &SolutionRepo{DB: db, MaxAge: maxAge}
}

func (r *SolutionRepo) EnsureSchema(ctx context.Context) error {
	if _, err := r.DB.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func (r *SolutionRepo) Ping(ctx context.Context) error { return r.DB.PingContext(ctx) }

// Find достаёт решение по ключу (image_hash + engine + model) с учётом MaxAge.
func (r *SolutionRepo) Find(ctx context.Context, k Key) (solve.Solution, error) {
	const q = `
select solution_json, created_at
from solutions_cache
where image_hash = $1 and engine = $2 and model = $3`
	var (
		js []byte
		ts time.Time
	)
	if err := r.DB.QueryRowContext(ctx, q, k.ImageHash, k.Engine, k.Model).Scan(&js, &ts); err != nil {
		return solve.Solution{}, err
	}
	if r.MaxAge > 0 && time.Since(ts) > r.MaxAge {
		return solve.Solution{}, ErrNotFound
	}
	var sol solve.Solution
	if err := json.Unmarshal(js, &sol); err != nil || sol.Validate() != nil {
		// битая запись ведёт себя как промах, следующий Upsert её перезапишет
		return solve.Solution{}, ErrNotFound
	}
	return sol, nil
}

// Upsert сохраняет решение; существующая запись по ключу перезаписывается и "освежается".
func (r *SolutionRepo) Upsert(ctx context.Context, k Key, sol solve.Solution) error {
	js, err := json.Marshal(sol)
	if err != nil {
		return err
	}
	const q = `
insert into solutions_cache (image_hash, engine, model, solution_json)
values ($1,$2,$3,$4)
on conflict (image_hash, engine, model) do update
set solution_json = excluded.solution_json,
    created_at = now()`
	_, err = r.DB.ExecContext(ctx, q, k.ImageHash, k.Engine, k.Model, js)
	return err
}

// PurgeOlderThan удаляет старые записи, чтобы не раздувать БД.
func (r *SolutionRepo) PurgeOlderThan(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		return 0, errors.New("olderThan must be > 0")
	}
	cutoff := time.Now().Add(-olderThan)
	const q = `delete from solutions_cache where created_at < $1`
	res, err := r.DB.ExecContext(ctx, q, cutoff)
	if err != nil {
		return 0, err
	}
	aff, _ := res.RowsAffected()
	return aff, nil
}
