package registry

import "padron/internal/platform/config"

// EndpointURL returns the registry service URL for the environment. Each
// mode has a fixed, distinct endpoint; there is nothing to configure per
// deployment beyond the mode itself.
func EndpointURL(mode config.Mode) string {
	if mode == config.ModeProduction {
		return "https://aws.afip.gov.ar/sr-padron/webservices/personaServiceA4"
	}
	return "https://awshomo.afip.gov.ar/sr-padron/webservices/personaServiceA4"
}
