package repository

import (
	"context"
	"database/sql"
	"errors"

	"codearena/internal/common/db"
	"codearena/internal/match/model"
)

type RoomRepository interface {
	Create(ctx context.Context, tx db.Transaction, room *model.Room) (int64, error)
	GetByCode(ctx context.Context, tx db.Transaction, code string) (*model.Room, error)
	GetByID(ctx context.Context, tx db.Transaction, id int64) (*model.Room, error)
	UpdateState(ctx context.Context, tx db.Transaction, roomID int64, state model.RoomState) error
	BindProblem(ctx context.Context, tx db.Transaction, roomID, problemID int64) error
}

type MySQLRoomRepository struct {
	database db.Database
}

func NewRoomRepository(database db.Database) RoomRepository {
	return &MySQLRoomRepository{database: database}
}

const roomColumns = "id, code, host_username, passcode, problem_id, state, topic, difficulty, anti_cheat, created_at"

func (r *MySQLRoomRepository) Create(ctx context.Context, tx db.Transaction, room *model.Room) (int64, error) {
	if room == nil {
		return 0, errors.New("room is nil")
	}
	state := room.State
	if state == "" {
		state = model.RoomStateLobby
	}

	problemID := sql.NullInt64{}
	if room.ProblemID != nil {
		problemID = sql.NullInt64{Int64: *room.ProblemID, Valid: true}
	}

	query := "INSERT INTO rooms (code, host_username, passcode, problem_id, state, topic, difficulty, anti_cheat) VALUES (?, ?, ?, ?, ?, ?, ?, ?)"
	querier := db.GetQuerier(r.database, tx)
	result, err := querier.Exec(ctx, query,
		room.Code, room.HostUsername, room.Passcode, problemID,
		state, room.Topic, room.Difficulty, room.AntiCheatEnabled,
	)
	if err != nil {
		if _, ok := db.UniqueViolation(err); ok {
			return 0, ErrDuplicate
		}
		return 0, err
	}
	return result.LastInsertId()
}

func (r *MySQLRoomRepository) GetByCode(ctx context.Context, tx db.Transaction, code string) (*model.Room, error) {
	query := "SELECT " + roomColumns + " FROM rooms WHERE code = ?"
	row := db.GetQuerier(r.database, tx).QueryRow(ctx, query, code)
	room, err := scanRoom(row)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, ErrRoomNotFound
		}
		return nil, err
	}
	return room, nil
}

func (r *MySQLRoomRepository) GetByID(ctx context.Context, tx db.Transaction, id int64) (*model.Room, error) {
	query := "SELECT " + roomColumns + " FROM rooms WHERE id = ?"
	row := db.GetQuerier(r.database, tx).QueryRow(ctx, query, id)
	room, err := scanRoom(row)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, ErrRoomNotFound
		}
		return nil, err
	}
	return room, nil
}

func (r *MySQLRoomRepository) UpdateState(ctx context.Context, tx db.Transaction, roomID int64, state model.RoomState) error {
	query := "UPDATE rooms SET state = ? WHERE id = ?"
	result, err := db.GetQuerier(r.database, tx).Exec(ctx, query, state, roomID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrRoomNotFound
	}
	return nil
}

func (r *MySQLRoomRepository) BindProblem(ctx context.Context, tx db.Transaction, roomID, problemID int64) error {
	query := "UPDATE rooms SET problem_id = ? WHERE id = ?"
	result, err := db.GetQuerier(r.database, tx).Exec(ctx, query, problemID, roomID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrRoomNotFound
	}
	return nil
}

func scanRoom(scanner db.Scanner) (*model.Room, error) {
	var room model.Room
	var problemID sql.NullInt64

	err := scanner.Scan(
		&room.ID,
		&room.Code,
		&room.HostUsername,
		&room.Passcode,
		&problemID,
		&room.State,
		&room.Topic,
		&room.Difficulty,
		&room.AntiCheatEnabled,
		&room.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if problemID.Valid {
		room.ProblemID = &problemID.Int64
	}
	return &room, nil
}
