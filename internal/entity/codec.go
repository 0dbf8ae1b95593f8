package entity

import (
	"encoding/json"
	"fmt"
	"time"
)

// Canonicalize projects any entity onto its wire payload for the given
// kind. The entity's timestamps are refreshed exactly as the per-family
// canonicalizers do. Returns an error if the entity's concrete type does
// not match the kind.
func Canonicalize(k Kind, e Entity, now time.Time) (json.RawMessage, error) {
	var wire any

	switch k {
	case KindTask:
		t, ok := e.(*Task)
		if !ok {
			return nil, kindMismatch(k, e)
		}

		wire = CanonicalizeTaskAt(t, now)

	case KindGoal:
		g, ok := e.(*Goal)
		if !ok {
			return nil, kindMismatch(k, e)
		}

		wire = CanonicalizeGoalAt(g, now)

	case KindAccount:
		a, ok := e.(*Account)
		if !ok {
			return nil, kindMismatch(k, e)
		}

		wire = CanonicalizeAccountAt(a, now)

	case KindForecast:
		f, ok := e.(*ForecastLine)
		if !ok {
			return nil, kindMismatch(k, e)
		}

		wire = CanonicalizeForecastLineAt(f, now)

	case KindMovement:
		m, ok := e.(*Movement)
		if !ok {
			return nil, kindMismatch(k, e)
		}

		wire = CanonicalizeMovementAt(m, now)

	default:
		return nil, fmt.Errorf("entity: unknown kind %q", k)
	}

	payload, err := json.Marshal(wire)
	if err != nil {
		return nil, fmt.Errorf("entity: encoding %s payload: %w", k, err)
	}

	return payload, nil
}

// Hydrate reconstructs a fully-defaulted entity of the given kind from a
// possibly-sparse wire payload.
func Hydrate(k Kind, payload []byte) (Entity, error) {
	switch k {
	case KindTask:
		var w WireTask
		if err := json.Unmarshal(payload, &w); err != nil {
			return nil, decodeErr(k, err)
		}

		return HydrateTask(w), nil

	case KindGoal:
		var w WireGoal
		if err := json.Unmarshal(payload, &w); err != nil {
			return nil, decodeErr(k, err)
		}

		return HydrateGoal(w), nil

	case KindAccount:
		var w WireAccount
		if err := json.Unmarshal(payload, &w); err != nil {
			return nil, decodeErr(k, err)
		}

		return HydrateAccount(w), nil

	case KindForecast:
		var w WireForecastLine
		if err := json.Unmarshal(payload, &w); err != nil {
			return nil, decodeErr(k, err)
		}

		return HydrateForecastLine(w), nil

	case KindMovement:
		var w WireMovement
		if err := json.Unmarshal(payload, &w); err != nil {
			return nil, decodeErr(k, err)
		}

		return HydrateMovement(w), nil

	default:
		return nil, fmt.Errorf("entity: unknown kind %q", k)
	}
}

func kindMismatch(k Kind, e Entity) error {
	return fmt.Errorf("entity: kind %s does not match entity type %T", k, e)
}

func decodeErr(k Kind, err error) error {
	return fmt.Errorf("entity: decoding %s payload: %w", k, err)
}
