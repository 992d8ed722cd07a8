package model

import (
	"github.com/pi-garden/irrigationd/internal/model/entities"
	"github.com/pi-garden/irrigationd/internal/model/messages"
)

// Aliases exposing the common types to the services.

type (
	SensorFusionInput = entities.SensorFusionInput
	HydrationScore    = entities.HydrationScore
	ZoneConfig        = entities.ZoneConfig
	ScheduleState     = entities.ScheduleState
	RunRecord         = entities.RunRecord
	RunMode           = entities.RunMode
	RunOutcome        = entities.RunOutcome
	ZoneState         = entities.ZoneState

	DecisionEvent    = messages.DecisionEvent
	StateChangeEvent = messages.StateChangeEvent
	RunResultEvent   = messages.RunResultEvent
	HealthEvent      = messages.HealthEvent
)

const (
	ZoneOn  = entities.ZoneOn
	ZoneOff = entities.ZoneOff

	RunModeReal      = entities.RunModeReal
	RunModeSimulated = entities.RunModeSimulated

	OutcomeCompleted = entities.OutcomeCompleted
	OutcomeAborted   = entities.OutcomeAborted
	OutcomeSkipped   = entities.OutcomeSkipped
)
