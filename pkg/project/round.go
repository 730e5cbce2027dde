package project

import (
	"fmt"
	"time"
)

type RoundStatus uint8

const (
	Wait RoundStatus = iota
	Training
	Complete
	Invalid
)

func (s RoundStatus) String() string {
	switch s {
	case Wait:
		return "Wait"
	case Training:
		return "Training"
	case Complete:
		return "Complete"
	case Invalid:
		return "Invalid"
	default:
		return fmt.Sprintf("RoundStatus(%d)", uint8(s))
	}
}

// Terminal reports whether a round in this status can no longer change.
func (s RoundStatus) Terminal() bool {
	return s == Complete || s == Invalid
}

func (s RoundStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *RoundStatus) UnmarshalText(b []byte) error {
	switch string(b) {
	case "Wait":
		*s = Wait
	case "Training":
		*s = Training
	case "Complete":
		*s = Complete
	case "Invalid":
		*s = Invalid
	default:
		return fmt.Errorf("unknown round status %q", string(b))
	}

	return nil
}

type Round struct {
	ID                string      `json:"id"`
	ProjectID         string      `json:"project_id"`
	Number            uint64      `json:"round_number"`
	Status            RoundStatus `json:"status"`
	NumberOfSamples   uint64      `json:"number_of_samples"`
	NumberOfEpochs    uint64      `json:"number_of_epochs"`
	Seed              int64       `json:"seed"`
	RequestedDevices  []string    `json:"requested_devices,omitempty"`
	StartTrainingDate time.Time   `json:"start_training_date"`
	StopTrainingDate  time.Time   `json:"stop_training_date"`
	CreatedAt         time.Time   `json:"created_at"`
}

// NewRound builds round number n of p, copying the training parameters
// the project holds at this instant.
func NewRound(id string, p Project, n uint64, now time.Time) Round {
	return Round{
		ID:              id,
		ProjectID:       p.ID,
		Number:          n,
		Status:          Wait,
		NumberOfSamples: p.NumberOfSamples,
		NumberOfEpochs:  p.NumberOfEpochs,
		Seed:            p.Seed,
		CreatedAt:       now,
	}
}

// TrainingRequest is the single request sent for a round that reached
// Training.
type TrainingRequest struct {
	ID          string    `json:"id"`
	RoundID     string    `json:"round_id"`
	ProjectID   string    `json:"project_id"`
	RoundNumber uint64    `json:"round_number"`
	Devices     []string  `json:"devices"`
	CreatedAt   time.Time `json:"created_at"`
	ValidDate   time.Time `json:"valid_date"`
}

type Notification struct {
	ID     string    `json:"id"`
	SentAt time.Time `json:"sent_at"`
	Count  uint64    `json:"count"`
}
