package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"AcevalImport/internal/appmanager"
)

func main() {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load(".env")

	manager := appmanager.NewAppManager()

	sequence := os.Getenv("ACEVAL_SERVICES")
	if sequence == "" {
		sequence = "services.yaml"
	}
	servicesCfg, err := appmanager.LoadServiceSequence(sequence)
	if err != nil {
		log.Fatal("failed to load service sequence:", err)
	}

	manager.AutoRegisterServices(servicesCfg)

	if err := manager.StartAll(); err != nil {
		log.Fatal("failed to start:", err)
	}

	// Graceful shutdown handling
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs

	if err := manager.StopAll(); err != nil {
		log.Fatal("failed to stop:", err)
	}
}
