package toolsy

type Config struct {
	SecretKey string `envconfig:"SECRET_KEY"`
	ProjectID string `envconfig:"PROJECT_ID"`
}
