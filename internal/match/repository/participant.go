package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"codearena/internal/common/db"
	"codearena/internal/match/model"
)

type ParticipantRepository interface {
	Create(ctx context.Context, tx db.Transaction, participant *model.Participant) (int64, error)
	GetByRoomAndUsername(ctx context.Context, tx db.Transaction, roomID int64, username string) (*model.Participant, error)
	ListByRoom(ctx context.Context, tx db.Transaction, roomID int64) ([]*model.Participant, error)
	AddScore(ctx context.Context, tx db.Transaction, participantID int64, delta, completedCases int) error
	SetFinished(ctx context.Context, tx db.Transaction, participantID int64, at time.Time) error
	IncrementTabSwitches(ctx context.Context, tx db.Transaction, participantID int64) (int, error)
}

type MySQLParticipantRepository struct {
	database db.Database
}

func NewParticipantRepository(database db.Database) ParticipantRepository {
	return &MySQLParticipantRepository{database: database}
}

const participantColumns = "id, room_id, username, score, completed_cases, tab_switches, joined_at, finished_at"

func (r *MySQLParticipantRepository) Create(ctx context.Context, tx db.Transaction, participant *model.Participant) (int64, error) {
	if participant == nil {
		return 0, errors.New("participant is nil")
	}
	query := "INSERT INTO participants (room_id, username) VALUES (?, ?)"
	result, err := db.GetQuerier(r.database, tx).Exec(ctx, query, participant.RoomID, participant.Username)
	if err != nil {
		if _, ok := db.UniqueViolation(err); ok {
			return 0, ErrAlreadyJoined
		}
		return 0, err
	}
	return result.LastInsertId()
}

func (r *MySQLParticipantRepository) GetByRoomAndUsername(ctx context.Context, tx db.Transaction, roomID int64, username string) (*model.Participant, error) {
	query := "SELECT " + participantColumns + " FROM participants WHERE room_id = ? AND username = ?"
	row := db.GetQuerier(r.database, tx).QueryRow(ctx, query, roomID, username)
	participant, err := scanParticipant(row)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, ErrParticipantNotFound
		}
		return nil, err
	}
	return participant, nil
}

func (r *MySQLParticipantRepository) ListByRoom(ctx context.Context, tx db.Transaction, roomID int64) ([]*model.Participant, error) {
	query := "SELECT " + participantColumns + " FROM participants WHERE room_id = ? ORDER BY joined_at ASC, id ASC"
	rows, err := db.GetQuerier(r.database, tx).Query(ctx, query, roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var participants []*model.Participant
	for rows.Next() {
		participant, err := scanParticipant(rows)
		if err != nil {
			return nil, err
		}
		participants = append(participants, participant)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return participants, nil
}

func (r *MySQLParticipantRepository) AddScore(ctx context.Context, tx db.Transaction, participantID int64, delta, completedCases int) error {
	query := "UPDATE participants SET score = score + ?, completed_cases = ? WHERE id = ?"
	result, err := db.GetQuerier(r.database, tx).Exec(ctx, query, delta, completedCases, participantID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrParticipantNotFound
	}
	return nil
}

// SetFinished records the finish time once. A participant that already has a
// finish time keeps it.
func (r *MySQLParticipantRepository) SetFinished(ctx context.Context, tx db.Transaction, participantID int64, at time.Time) error {
	query := "UPDATE participants SET finished_at = ? WHERE id = ? AND finished_at IS NULL"
	_, err := db.GetQuerier(r.database, tx).Exec(ctx, query, at, participantID)
	return err
}

func (r *MySQLParticipantRepository) IncrementTabSwitches(ctx context.Context, tx db.Transaction, participantID int64) (int, error) {
	querier := db.GetQuerier(r.database, tx)
	query := "UPDATE participants SET tab_switches = tab_switches + 1 WHERE id = ?"
	result, err := querier.Exec(ctx, query, participantID)
	if err != nil {
		return 0, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	if affected == 0 {
		return 0, ErrParticipantNotFound
	}

	row := querier.QueryRow(ctx, "SELECT tab_switches FROM participants WHERE id = ?", participantID)
	var count int
	if err := row.Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func scanParticipant(scanner db.Scanner) (*model.Participant, error) {
	var participant model.Participant
	var finishedAt sql.NullTime

	err := scanner.Scan(
		&participant.ID,
		&participant.RoomID,
		&participant.Username,
		&participant.Score,
		&participant.CompletedCases,
		&participant.TabSwitches,
		&participant.JoinedAt,
		&finishedAt,
	)
	if err != nil {
		return nil, err
	}
	if finishedAt.Valid {
		participant.FinishedAt = &finishedAt.Time
	}
	return &participant, nil
}
