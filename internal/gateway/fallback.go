package gateway

// fallbackPayload builds the degraded-mode body returned when a
// service's circuit is open. A payload from the service configuration
// wins; otherwise well-known services get a shape their consumers can
// render without errors, and everything else gets a generic notice.
func (g *Gateway) fallbackPayload(service string) map[string]any {
	if payload := g.fallbackFor(service); payload != nil {
		return payload
	}

	switch service {
	case "gamification":
		return map[string]any{
			"status":  "degraded",
			"service": service,
			"points":  0,
			"badges":  []any{},
			"message": "gamification is temporarily unavailable",
		}
	case "analytics":
		return map[string]any{
			"status":  "degraded",
			"service": service,
			"report":  map[string]any{},
			"message": "analytics is temporarily unavailable",
		}
	case "ai-feedback":
		return map[string]any{
			"status":   "degraded",
			"service":  service,
			"feedback": "",
			"message":  "ai feedback is temporarily unavailable",
		}
	default:
		return map[string]any{
			"status":  "degraded",
			"service": service,
			"message": "temporarily unavailable",
		}
	}
}
