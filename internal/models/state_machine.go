// Package models provides the typed market records and the month-simulation
// state machine used by the backtest engine.
package models

import (
	"fmt"
	"time"
)

// MonthState represents the lifecycle stage of one symbol-month simulation.
type MonthState string

const (
	// StateStart - entry gates not yet passed
	StateStart MonthState = "start"
	// StateEntered - both legs sold, position open
	StateEntered MonthState = "entered"
	// StateRolling - replacing the cheaper leg on a roll date
	StateRolling MonthState = "rolling"
	// StateSettled - both legs bought back at the exit date
	StateSettled MonthState = "settled"
	// StateSkipped - a gate fired; the month carries a skip reason
	StateSkipped MonthState = "skipped"
)

// MonthTransition defines a valid state transition.
type MonthTransition struct {
	From        MonthState
	To          MonthState
	Condition   string
	Description string
}

// ValidMonthTransitions is the backtest month lifecycle:
// START -> ENTERED -> {ROLLING}* -> SETTLED, with early exits to SKIPPED.
var ValidMonthTransitions = []MonthTransition{
	{StateStart, StateEntered, "legs_sold", "Both strangle legs sold at entry"},
	{StateEntered, StateRolling, "roll_due", "Roll date reached, closing cheaper leg"},
	{StateRolling, StateEntered, "leg_replaced", "Replacement leg sold"},
	{StateEntered, StateSettled, "exit_filled", "Both legs bought back at exit"},

	{StateStart, StateSkipped, "entry_gate", "Entry data missing or earnings conflict"},
	{StateEntered, StateSkipped, "data_gap", "Exit data or price unavailable"},
	{StateRolling, StateSkipped, "roll_failed", "No replacement leg available"},
}

// MonthMachine enforces the month lifecycle. It is scoped to one simulation
// and not safe for concurrent use; each symbol-month owns its own machine.
type MonthMachine struct {
	current       MonthState
	previous      MonthState
	lastCondition string
	transitionLog []MonthTransition
	createdAt     time.Time
}

// NewMonthMachine creates a machine in StateStart.
func NewMonthMachine() *MonthMachine {
	return &MonthMachine{
		current:       StateStart,
		transitionLog: make([]MonthTransition, 0),
		createdAt:     time.Now().UTC(),
	}
}

// GetCurrentState returns the current state.
func (m *MonthMachine) GetCurrentState() MonthState { return m.current }

// GetPreviousState returns the state before the last transition.
func (m *MonthMachine) GetPreviousState() MonthState { return m.previous }

// CanTransition reports whether a transition to the target state is allowed.
func (m *MonthMachine) CanTransition(to MonthState) bool {
	for _, t := range ValidMonthTransitions {
		if t.From == m.current && t.To == to {
			return true
		}
	}
	return false
}

// Transition moves the machine to a new state, recording the condition.
// Invalid transitions return an error and leave the state unchanged.
func (m *MonthMachine) Transition(to MonthState, condition string) error {
	for _, t := range ValidMonthTransitions {
		if t.From == m.current && t.To == to && t.Condition == condition {
			m.previous = m.current
			m.current = to
			m.lastCondition = condition
			m.transitionLog = append(m.transitionLog, t)
			return nil
		}
	}
	return fmt.Errorf("invalid transition from %s to %s (condition: %s)", m.current, to, condition)
}

// Terminal reports whether the simulation has finished.
func (m *MonthMachine) Terminal() bool {
	return m.current == StateSettled || m.current == StateSkipped
}

// RollCount returns how many roll cycles completed.
func (m *MonthMachine) RollCount() int {
	n := 0
	for _, t := range m.transitionLog {
		if t.To == StateEntered && t.From == StateRolling {
			n++
		}
	}
	return n
}
