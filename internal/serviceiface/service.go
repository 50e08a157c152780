package serviceiface

// Service is started and stopped by the app manager in services.yaml order.
type Service interface {
	Name() string
	Start() error
	Stop() error
}

// Reporter is implemented by services that publish their state on the
// health endpoint.
type Reporter interface {
	Status() map[string]interface{}
}
