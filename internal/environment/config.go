package environment

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type EnvConfig struct {
	// NatsURL is where grading requests arrive and progress is streamed.
	NatsURL     string
	SubmSubject string

	// Optional SQS pair for deployments consuming results off AWS.
	SubmSqsURL     string
	ResponseSqsURL string

	WorkspaceRoot string
	MaxConcurrent int
}

func ReadEnvConfig() *EnvConfig {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using process environment")
	}

	result := &EnvConfig{
		NatsURL:        os.Getenv("NATS_URL"),
		SubmSubject:    os.Getenv("SUBM_SUBJECT"),
		SubmSqsURL:     os.Getenv("SUBM_SQS_URL"),
		ResponseSqsURL: os.Getenv("RESPONSE_SQS_URL"),
		WorkspaceRoot:  os.Getenv("WORKSPACE_ROOT"),
	}
	if result.SubmSubject == "" {
		result.SubmSubject = "grader.jobs"
	}

	result.MaxConcurrent = 4
	if v := os.Getenv("MAX_CONCURRENT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			log.Fatalf("bad MAX_CONCURRENT value %q", v)
		}
		result.MaxConcurrent = n
	}

	return result
}
