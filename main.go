package main

import (
	"log"
	"math/rand"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"mediguide-backend/conn"
	"mediguide-backend/directory"
	"mediguide-backend/intake"
	"mediguide-backend/matching"
	"mediguide-backend/migrations"
	"mediguide-backend/openai"
	"mediguide-backend/routing"
	"mediguide-backend/store"
	"mediguide-backend/synthesis"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("[Main] no .env file loaded: %v", err)
	}

	// Persistence: own the MySQL store when DB_HOST is configured, otherwise
	// talk to the REST directory collaborator.
	var (
		doctors  routing.DoctorStore
		cases    routing.CaseStore
		patients routing.PatientStore
	)
	if os.Getenv("DB_HOST") != "" {
		db, err := conn.NewMySQL()
		if err != nil {
			log.Fatalf("[Main] mysql connection failed: %v", err)
		}
		migrations.Init(db)
		if err := migrations.Migrate(); err != nil {
			log.Fatalf("[Main] migration failed: %v", err)
		}
		if err := migrations.SeedDoctors(); err != nil {
			log.Printf("[Main] doctor seeding failed: %v", err)
		}
		st := store.New(db)
		doctors, cases, patients = st, st, st
		log.Printf("[Main] using MySQL store")
	} else {
		client := directory.NewClient()
		if err := client.StartRosterRefresh(); err != nil {
			log.Printf("[Main] roster refresh unavailable: %v", err)
		}
		defer client.Stop()
		doctors, cases, patients = client, client, client
		log.Printf("[Main] using REST directory")
	}

	// Clients and services.
	ai := openai.NewClient()
	synth := synthesis.New(ai)
	matcher := matching.New(rand.New(rand.NewSource(time.Now().UnixNano())))
	router := routing.NewRouter(doctors, cases, patients, matcher)
	mgr := intake.NewManager()

	r := gin.Default()
	intake.NewHandler(mgr, synth, router).RegisterRoutes(r)
	routing.NewHandler(router).RegisterRoutes(r)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	if err := r.Run(":" + port); err != nil {
		log.Fatal(err)
	}
}
