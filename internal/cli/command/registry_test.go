package command_test

import (
	"encoding/json"
	"testing"

	"codearena/internal/cli/command"
)

func TestBuildRoomCreate(t *testing.T) {
	t.Parallel()
	cmd, ok := command.Registry()["room create"]
	if !ok {
		t.Fatal("room create not registered")
	}
	params := command.Params{}
	params.Set("topic", "Arrays")
	params.Set("difficulty", "Medium")
	params.Set("anti_cheat", "true")

	req, err := command.BuildRequest(cmd, params)
	if err != nil {
		t.Fatalf("build request failed: %v", err)
	}
	if req.Method != "POST" || req.Path != "/api/v1/rooms" {
		t.Fatalf("unexpected request: %s %s", req.Method, req.Path)
	}
	var payload map[string]interface{}
	if err := json.Unmarshal(req.Body, &payload); err != nil {
		t.Fatalf("unmarshal body: %v", err)
	}
	if payload["topic"] != "Arrays" {
		t.Fatalf("topic = %v", payload["topic"])
	}
	if payload["anti_cheat"] != true {
		t.Fatalf("anti_cheat = %v", payload["anti_cheat"])
	}
}

func TestBuildRoomCreateInvalidBool(t *testing.T) {
	t.Parallel()
	cmd := command.Registry()["room create"]
	params := command.Params{}
	params.Set("anti_cheat", "yep")

	if _, err := command.BuildRequest(cmd, params); err == nil {
		t.Fatal("expected error for invalid anti_cheat")
	}
}

func TestBuildRoomJoinPath(t *testing.T) {
	t.Parallel()
	cmd := command.Registry()["room join"]
	params := command.Params{}
	params.Set("code", "AB12CD")
	params.Set("passcode", "hunter2")

	req, err := command.BuildRequest(cmd, params)
	if err != nil {
		t.Fatalf("build request failed: %v", err)
	}
	if req.Path != "/api/v1/rooms/AB12CD/join" {
		t.Fatalf("path = %s", req.Path)
	}
	var payload map[string]string
	if err := json.Unmarshal(req.Body, &payload); err != nil {
		t.Fatalf("unmarshal body: %v", err)
	}
	if payload["passcode"] != "hunter2" {
		t.Fatalf("passcode = %q", payload["passcode"])
	}
}

func TestBuildMissingPathParam(t *testing.T) {
	t.Parallel()
	cmd := command.Registry()["room get"]
	if _, err := command.BuildRequest(cmd, command.Params{}); err == nil {
		t.Fatal("expected missing code error")
	}
}

func TestLeaderboardAndProblemListAreGET(t *testing.T) {
	t.Parallel()
	registry := command.Registry()
	for _, key := range []string{"room leaderboard", "problem list"} {
		cmd, ok := registry[key]
		if !ok {
			t.Fatalf("%s not registered", key)
		}
		if cmd.Method != "GET" {
			t.Fatalf("%s method = %s", key, cmd.Method)
		}
	}
}
