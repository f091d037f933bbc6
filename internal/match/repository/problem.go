package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"codearena/internal/common/db"
	"codearena/internal/match/model"
)

type ProblemRepository interface {
	Create(ctx context.Context, tx db.Transaction, problem *model.Problem) (int64, error)
	GetByID(ctx context.Context, tx db.Transaction, id int64) (*model.Problem, error)
	// PickRandom selects a random stored problem, preferring an exact
	// topic and difficulty match, then difficulty alone, then anything.
	PickRandom(ctx context.Context, tx db.Transaction, topic, difficulty string) (*model.Problem, error)
	List(ctx context.Context, tx db.Transaction) ([]*model.Problem, error)
}

type MySQLProblemRepository struct {
	database db.Database
}

func NewProblemRepository(database db.Database) ProblemRepository {
	return &MySQLProblemRepository{database: database}
}

const problemColumns = "id, title, description, difficulty, topic, initial_code, entry_point, test_cases, created_at"

func (r *MySQLProblemRepository) Create(ctx context.Context, tx db.Transaction, problem *model.Problem) (int64, error) {
	if problem == nil {
		return 0, errors.New("problem is nil")
	}
	if len(problem.TestCases) == 0 {
		return 0, errors.New("problem has no test cases")
	}

	entry, err := json.Marshal(problem.Entry)
	if err != nil {
		return 0, fmt.Errorf("marshal entry point: %w", err)
	}
	cases, err := json.Marshal(problem.TestCases)
	if err != nil {
		return 0, fmt.Errorf("marshal test cases: %w", err)
	}

	query := "INSERT INTO problems (title, description, difficulty, topic, initial_code, entry_point, test_cases) VALUES (?, ?, ?, ?, ?, ?, ?)"
	result, err := db.GetQuerier(r.database, tx).Exec(ctx, query,
		problem.Title, problem.Description, problem.Difficulty, problem.Topic,
		problem.InitialCode, string(entry), string(cases),
	)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

func (r *MySQLProblemRepository) GetByID(ctx context.Context, tx db.Transaction, id int64) (*model.Problem, error) {
	query := "SELECT " + problemColumns + " FROM problems WHERE id = ?"
	row := db.GetQuerier(r.database, tx).QueryRow(ctx, query, id)
	problem, err := scanProblem(row)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, ErrProblemNotFound
		}
		return nil, err
	}
	return problem, nil
}

func (r *MySQLProblemRepository) PickRandom(ctx context.Context, tx db.Transaction, topic, difficulty string) (*model.Problem, error) {
	querier := db.GetQuerier(r.database, tx)

	type attempt struct {
		where string
		args  []interface{}
	}
	attempts := []attempt{}
	if topic != "" && topic != model.TopicRandom && difficulty != "" {
		attempts = append(attempts, attempt{where: "WHERE topic = ? AND difficulty = ?", args: []interface{}{topic, difficulty}})
	}
	if difficulty != "" {
		attempts = append(attempts, attempt{where: "WHERE difficulty = ?", args: []interface{}{difficulty}})
	}
	attempts = append(attempts, attempt{where: "", args: nil})

	for _, a := range attempts {
		query := "SELECT " + problemColumns + " FROM problems " + a.where + " ORDER BY RAND() LIMIT 1"
		row := querier.QueryRow(ctx, query, a.args...)
		problem, err := scanProblem(row)
		if err != nil {
			if db.IsNoRows(err) {
				continue
			}
			return nil, err
		}
		return problem, nil
	}
	return nil, ErrProblemNotFound
}

func (r *MySQLProblemRepository) List(ctx context.Context, tx db.Transaction) ([]*model.Problem, error) {
	query := "SELECT " + problemColumns + " FROM problems ORDER BY id ASC"
	rows, err := db.GetQuerier(r.database, tx).Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var problems []*model.Problem
	for rows.Next() {
		problem, err := scanProblem(rows)
		if err != nil {
			return nil, err
		}
		problems = append(problems, problem)
	}
	return problems, rows.Err()
}

func scanProblem(scanner db.Scanner) (*model.Problem, error) {
	var problem model.Problem
	var entry, cases string

	err := scanner.Scan(
		&problem.ID,
		&problem.Title,
		&problem.Description,
		&problem.Difficulty,
		&problem.Topic,
		&problem.InitialCode,
		&entry,
		&cases,
		&problem.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if entry != "" {
		if err := json.Unmarshal([]byte(entry), &problem.Entry); err != nil {
			return nil, fmt.Errorf("unmarshal entry point: %w", err)
		}
	}
	if cases != "" {
		if err := json.Unmarshal([]byte(cases), &problem.TestCases); err != nil {
			return nil, fmt.Errorf("unmarshal test cases: %w", err)
		}
	}
	return &problem, nil
}
