// Copyright (c) The rfid-ingest Authors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package model

import "time"

// Status is a Reader's operational state. Transitions are restricted to
// the matrix in allowedTransitions (spec §3); anything else is a
// TransitionError.
type Status string

const (
	StatusOffline     Status = "OFFLINE"
	StatusOnline      Status = "ONLINE"
	StatusError       Status = "ERROR"
	StatusMaintenance Status = "MAINTENANCE"
)

var allowedTransitions = map[Status]map[Status]bool{
	StatusOffline:     {StatusOnline: true, StatusMaintenance: true},
	StatusOnline:      {StatusOffline: true, StatusError: true, StatusMaintenance: true},
	StatusError:       {StatusOffline: true, StatusMaintenance: true},
	StatusMaintenance: {StatusOffline: true},
}

// CanTransition reports whether from -> to is a legal status change.
func CanTransition(from, to Status) bool {
	return allowedTransitions[from][to]
}

// StatusHistoryEntry records one status change, always paired with a
// human-readable reason (spec §4.5: "every status change appends to
// history with a reason").
type StatusHistoryEntry struct {
	Timestamp time.Time
	From, To  Status
	Reason    string
}
