package endpoints

import (
	"github.com/oguzhansen/comiclate/internal/api"
)

// All returns all endpoint instances.
func All() []api.Endpoint {
	return []api.Endpoint{
		// Health endpoints
		&HealthEndpoint{},
		&StatusEndpoint{},

		// Session endpoints
		&CreateSessionEndpoint{},
		&GetSessionEndpoint{},
		&DeleteSessionEndpoint{},
		&UploadFileEndpoint{},
		&GoToPageEndpoint{},
		&PageImageEndpoint{},
		&TranslateEndpoint{},

		// Language list
		&LanguagesEndpoint{},

		// Translation call history
		&ListCallsEndpoint{},
		&GetCallEndpoint{},

		// Settings endpoints
		&ListSettingsEndpoint{},
		&UpdateSettingEndpoint{},

		// Static files (catch-all, must be last)
		&StaticEndpoint{},
	}
}
