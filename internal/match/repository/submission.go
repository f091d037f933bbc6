package repository

import (
	"context"
	"errors"

	"codearena/internal/common/db"
	"codearena/internal/match/model"
)

type SubmissionRepository interface {
	Create(ctx context.Context, tx db.Transaction, submission *model.Submission) error
	CountByParticipant(ctx context.Context, tx db.Transaction, participantID int64) (int, error)
	LatestByParticipant(ctx context.Context, tx db.Transaction, participantID int64) (*model.Submission, error)
}

type MySQLSubmissionRepository struct {
	database db.Database
}

func NewSubmissionRepository(database db.Database) SubmissionRepository {
	return &MySQLSubmissionRepository{database: database}
}

const submissionColumns = "id, participant_id, code, passed, output_log, execution_time, created_at"

func (r *MySQLSubmissionRepository) Create(ctx context.Context, tx db.Transaction, submission *model.Submission) error {
	if submission == nil {
		return errors.New("submission is nil")
	}
	query := "INSERT INTO submissions (id, participant_id, code, passed, output_log, execution_time) VALUES (?, ?, ?, ?, ?, ?)"
	_, err := db.GetQuerier(r.database, tx).Exec(ctx, query,
		submission.ID, submission.ParticipantID, submission.Code,
		submission.Passed, submission.OutputLog, submission.ExecutionTime,
	)
	if err != nil {
		if _, ok := db.UniqueViolation(err); ok {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

func (r *MySQLSubmissionRepository) CountByParticipant(ctx context.Context, tx db.Transaction, participantID int64) (int, error) {
	query := "SELECT COUNT(*) FROM submissions WHERE participant_id = ?"
	row := db.GetQuerier(r.database, tx).QueryRow(ctx, query, participantID)
	var count int
	if err := row.Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *MySQLSubmissionRepository) LatestByParticipant(ctx context.Context, tx db.Transaction, participantID int64) (*model.Submission, error) {
	query := "SELECT " + submissionColumns + " FROM submissions WHERE participant_id = ? ORDER BY created_at DESC, id DESC LIMIT 1"
	row := db.GetQuerier(r.database, tx).QueryRow(ctx, query, participantID)

	var submission model.Submission
	err := row.Scan(
		&submission.ID,
		&submission.ParticipantID,
		&submission.Code,
		&submission.Passed,
		&submission.OutputLog,
		&submission.ExecutionTime,
		&submission.CreatedAt,
	)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, ErrSubmissionNotFound
		}
		return nil, err
	}
	return &submission, nil
}
