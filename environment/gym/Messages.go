package gym

import (
	"encoding/json"
	"fmt"
)

// Delimiter terminates every message sent to or received from a Gym
// environment server.
const Delimiter = "\r\n\r\n"

// envRequest builds messages addressed to the environment itself
type envRequest struct {
	Name   string `json:"name,omitempty"`
	Action string `json:"action,omitempty"`
	Seed   *int   `json:"seed,omitempty"`
}

type stepRequest struct {
	Action []float64 `json:"action"`
	Render bool      `json:"render"`
}

type monitorRequest struct {
	Action    string `json:"action"`
	Directory string `json:"directory,omitempty"`
	Force     bool   `json:"force,omitempty"`
	Resume    bool   `json:"resume,omitempty"`
}

type serverRequest struct {
	Action string `json:"action"`
}

// request is the envelope of every message sent to the server. Exactly
// one of its fields is set.
type request struct {
	Env     *envRequest     `json:"env,omitempty"`
	Step    *stepRequest    `json:"step,omitempty"`
	Monitor *monitorRequest `json:"monitor,omitempty"`
	Server  *serverRequest  `json:"server,omitempty"`
}

// response is the union of every reply the server may send
type response struct {
	Observation []float64       `json:"observation"`
	Reward      float64         `json:"reward"`
	Done        bool            `json:"done"`
	Info        json.RawMessage `json:"info,omitempty"`

	// Space replies
	Name  string    `json:"name"`
	N     int       `json:"n"`
	Shape []int     `json:"shape"`
	Low   []float64 `json:"low"`
	High  []float64 `json:"high"`

	URL   string `json:"url"`
	Error string `json:"error"`
}

// Space describes an action or observation space of a Gym environment
type Space struct {
	Name  string
	N     int
	Shape []int
	Low   []float64
	High  []float64
}

// Available space names
const (
	DiscreteSpace = "Discrete"
	BoxSpace      = "Box"
)

// StepResult is the outcome of a single environment step on the server
type StepResult struct {
	Observation []float64
	Reward      float64
	Done        bool
	Info        json.RawMessage
}

// ServerError is an error reported by the Gym server in reply to a
// request.
type ServerError struct {
	Op      string
	Message string
}

// Error satisfies the error interface
func (s *ServerError) Error() string {
	return fmt.Sprintf("%v: server error: %v", s.Op, s.Message)
}

func makeMessage(envID string) request {
	return request{Env: &envRequest{Name: envID}}
}

func envActionMessage(action string) request {
	return request{Env: &envRequest{Action: action}}
}

func seedMessage(seed int) request {
	return request{Env: &envRequest{Seed: &seed}}
}

func stepMessage(action []float64, render bool) request {
	return request{Step: &stepRequest{Action: action, Render: render}}
}

func monitorStartMessage(dir string, force, resume bool) request {
	return request{Monitor: &monitorRequest{
		Action:    "start",
		Directory: dir,
		Force:     force,
		Resume:    resume,
	}}
}

func monitorCloseMessage() request {
	return request{Monitor: &monitorRequest{Action: "close"}}
}

func urlMessage() request {
	return request{Server: &serverRequest{Action: "url"}}
}
