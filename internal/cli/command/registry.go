package command

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Registry returns all CLI commands keyed by "service action".
func Registry() map[string]Command {
	commands := []Command{
		{
			Service:      "room",
			Action:       "create",
			Method:       "POST",
			PathTemplate: "/api/v1/rooms",
			Fields: []Field{
				{Name: "topic", Prompt: "topic", Type: FieldString, Required: false},
				{Name: "difficulty", Prompt: "difficulty", Type: FieldString, Required: false},
				{Name: "passcode", Prompt: "passcode", Type: FieldString, Required: false},
				{Name: "anti_cheat", Prompt: "anti_cheat", Type: FieldBool, Required: false},
			},
		},
		{
			Service:      "room",
			Action:       "get",
			Method:       "GET",
			PathTemplate: "/api/v1/rooms/:code",
			Fields: []Field{
				{Name: "code", Prompt: "room code", Type: FieldString, Required: true},
			},
		},
		{
			Service:      "room",
			Action:       "join",
			Method:       "POST",
			PathTemplate: "/api/v1/rooms/:code/join",
			Fields: []Field{
				{Name: "code", Prompt: "room code", Type: FieldString, Required: true},
				{Name: "passcode", Prompt: "passcode", Type: FieldString, Required: false},
			},
		},
		{
			Service:      "room",
			Action:       "leaderboard",
			Method:       "GET",
			PathTemplate: "/api/v1/rooms/:code/leaderboard",
			Fields: []Field{
				{Name: "code", Prompt: "room code", Type: FieldString, Required: true},
			},
		},
		{
			Service:      "problem",
			Action:       "list",
			Method:       "GET",
			PathTemplate: "/api/v1/problems",
		},
	}

	registry := make(map[string]Command, len(commands))
	for _, cmd := range commands {
		registry[fmt.Sprintf("%s %s", cmd.Service, cmd.Action)] = cmd
	}
	return registry
}

// BuildRequest turns a command plus params into an HTTP request spec.
func BuildRequest(cmd Command, params Params) (RequestSpec, error) {
	path, err := buildPath(cmd.PathTemplate, params)
	if err != nil {
		return RequestSpec{}, err
	}

	var body []byte
	if cmd.Method != "GET" && cmd.Method != "DELETE" {
		payload, err := buildPayload(cmd, params)
		if err != nil {
			return RequestSpec{}, err
		}
		if payload != nil {
			body, err = json.Marshal(payload)
			if err != nil {
				return RequestSpec{}, fmt.Errorf("marshal request body failed: %w", err)
			}
		}
	}

	return RequestSpec{
		Method: cmd.Method,
		Path:   path,
		Body:   body,
	}, nil
}

func buildPath(template string, params Params) (string, error) {
	path := template
	if strings.Contains(path, ":code") {
		value := params.Get("code")
		if value == "" {
			return "", fmt.Errorf("missing path parameter: code")
		}
		path = strings.ReplaceAll(path, ":code", value)
	}
	return path, nil
}

func buildPayload(cmd Command, params Params) (interface{}, error) {
	switch cmd.Action {
	case "create":
		payload := map[string]interface{}{
			"topic":      params.Get("topic"),
			"difficulty": params.Get("difficulty"),
			"passcode":   params.Get("passcode"),
		}
		if params.Get("anti_cheat") != "" {
			antiCheat, err := ParseBool(params.Get("anti_cheat"))
			if err != nil {
				return nil, fmt.Errorf("invalid anti_cheat: %w", err)
			}
			payload["anti_cheat"] = antiCheat
		}
		return payload, nil
	case "join":
		return map[string]string{
			"passcode": params.Get("passcode"),
		}, nil
	}
	return nil, nil
}
