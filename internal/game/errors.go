/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package game

import "errors"

var (
	ErrRegistryExhausted = errors.New("no free room code available, please try again")
	ErrRoomNotFound      = errors.New("room not found")
	ErrRoomNotJoinable   = errors.New("room is not accepting new players")
	ErrRoomFull          = errors.New("room is full")
	ErrRoomClosed        = errors.New("room closed")
	ErrNameConflict      = errors.New("that name is already taken in this room")
	ErrInvalidName       = errors.New("name must be between 1 and 24 characters")
	ErrAlreadyInRoom     = errors.New("already in a room")
	ErrNotInRoom         = errors.New("not in a room")
	ErrNotHost           = errors.New("only the host can do that")
	ErrNotEnoughPlayers  = errors.New("not enough players to start")
	ErrNotPlaying        = errors.New("no game in progress")
	ErrWrongPhase        = errors.New("not allowed in the current phase")
	ErrAlreadyAnswered   = errors.New("answer already submitted this round")
	ErrAlreadyVoted      = errors.New("vote already cast this round")
	ErrSelfVote          = errors.New("you cannot vote for yourself")
	ErrUnknownTarget     = errors.New("no such player in this room")
	ErrInvalidText       = errors.New("message is empty or too long")
)
