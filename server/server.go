package server

import (
	"encoding/xml"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/amachie/folio/server/auth"
	"github.com/amachie/folio/server/auth/key"
	"github.com/amachie/folio/server/logger"
	"github.com/amachie/folio/server/models"
	"github.com/amachie/folio/server/twilio"
	"github.com/amachie/folio/server/work"
	"github.com/amachie/folio/shared"
	"github.com/go-playground/validator"
	"github.com/gorilla/mux"
	"github.com/spf13/viper"
)

type RequestContextKey string

type DecodedJWT struct {
	Claims   *auth.FolioTokenClaims
	ErrorMsg string
}

type ResponsePayload struct {
	Errors  []string    `json:"errors,omitempty"`
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
}

type TwilioSmsResponse struct {
	XMLName xml.Name `xml:"Response"`
	Message string   `xml:"Message"`
}

var (
	logg = logger.NewLogger()

	validate     *validator.Validate
	authKeyPair  *key.KeyPair
	workerPool   *work.WorkerPoolAdapter
	twilioClient *twilio.ClientWrapper
	serverConfig *shared.ServerConfig
	dbFilePath   string
)

// Start boots the whole server: validates config, migrates the db,
// starts the worker pool & serves http until SIGINT/SIGTERM.
func Start(config *viper.Viper, devMode bool) {
	var err error

	serverConfig = &shared.ServerConfig{}
	fatalOnError(config.Unmarshal(serverConfig))

	validate = validator.New()
	fatalOnError(RegisterValidators(validate))
	fatalOnError(validate.Struct(serverConfig))

	authKeyPair, err = key.NewKeyPairFromRSAPrivateKeyPem(serverConfig.Folio.PrivateKeyPem)
	fatalOnError(err)

	configDir := configDirectory(devMode)
	dbDir, err := models.DbDirectory(configDir)
	fatalOnError(err)
	dbFilePath = filepath.Join(dbDir, models.DB_NAME)

	if sqliteBackupEnabled() {
		fatalOnError(restoreSqliteDbIfMissing())
	}

	fatalOnError(models.AutoMigrate(serverConfig.Sqlite.PassPhrase, configDir))

	if configFlagEnabled(serverConfig.Twilio.EnableNotifications) {
		twilioClient = twilio.NewClient(serverConfig.Twilio, serverConfig.Folio.AppURL)
	}

	workerPool = work.NewWorkerAdapter(serverConfig.Folio.Cron.TimeZone, devMode)
	registerJobHandlers(workerPool)
	enqueueJobs(workerPool)
	workerPool.Start()

	server := &http.Server{
		Addr:         fmt.Sprintf(":%v", serverConfig.Folio.Listener.Port),
		Handler:      newRouter(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go serve(server)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	cleanup(workerPool, server, sqliteBackupEnabled())
}

func newRouter() *mux.Router {
	router := mux.NewRouter()
	router.Use(loggingMiddleware, initialContextMiddleware)

	admin := func(handler http.HandlerFunc) http.Handler {
		return adminRouteMiddleware(handler)
	}
	protected := func(handler http.HandlerFunc) http.Handler {
		return protectedRouteMiddleware(handler)
	}

	// Public routes
	router.HandleFunc("/health", healthHandler).Methods("GET")
	router.HandleFunc("/.well-known/jwks.json", jwksHandler).Methods("GET")
	router.HandleFunc("/login", logInHandler).Methods("POST")
	router.HandleFunc("/newsletter", subscribeHandler).Methods("POST")
	router.HandleFunc("/newsletter/update", reconcileSubscriptionHandler).Methods("POST")
	router.HandleFunc("/newsletter/unsubscribe", unsubscribeHandler).Methods("POST")
	router.HandleFunc("/newsletter/resubscribe", resubscribeHandler).Methods("POST")
	router.HandleFunc("/posts", listBlogPostsHandler).Methods("GET")
	router.HandleFunc("/posts/{slug:[a-z0-9-]+}", findBlogPostHandler).Methods("GET")
	router.HandleFunc("/projects", listProjectsHandler).Methods("GET")
	router.HandleFunc("/projects/{id:[0-9]+}", findProjectHandler).Methods("GET")
	router.HandleFunc("/contact", createContactRequestHandler).Methods("POST")
	router.HandleFunc("/service-requests", createServiceRequestHandler).Methods("POST")
	router.HandleFunc("/webhook/sms", smsWebhookHandler).Methods("POST")

	// Admin routes
	router.Handle("/newsletter", admin(listSubscribersHandler)).Methods("GET")
	router.Handle("/newsletter/export", admin(exportSubscribersHandler)).Methods("GET")
	router.Handle("/newsletter/{id:[0-9]+}", admin(deleteSubscriberHandler)).Methods("DELETE")
	router.Handle("/posts", admin(createBlogPostHandler)).Methods("POST")
	router.Handle("/posts/{id:[0-9]+}", admin(updateBlogPostHandler)).Methods("PUT")
	router.Handle("/posts/{id:[0-9]+}", admin(deleteBlogPostHandler)).Methods("DELETE")
	router.Handle("/projects", admin(createProjectHandler)).Methods("POST")
	router.Handle("/projects/{id:[0-9]+}", admin(updateProjectHandler)).Methods("PUT")
	router.Handle("/projects/{id:[0-9]+}", admin(deleteProjectHandler)).Methods("DELETE")
	router.Handle("/contact", admin(listContactRequestsHandler)).Methods("GET")
	router.Handle("/contact/{id:[0-9]+}", admin(deleteContactRequestHandler)).Methods("DELETE")
	router.Handle("/service-requests", admin(listServiceRequestsHandler)).Methods("GET")
	router.Handle("/service-requests/{id:[0-9]+}", admin(updateServiceRequestStatusHandler)).Methods("PUT")
	router.Handle("/service-requests/{id:[0-9]+}", admin(deleteServiceRequestHandler)).Methods("DELETE")
	router.Handle("/jobs", admin(jobsHandler)).Methods("GET")
	router.Handle("/users", admin(createUserHandler)).Methods("POST")

	// Per-user routes
	router.Handle("/users/{id:[0-9]+}", protected(findUserHandler)).Methods("GET")
	router.Handle("/users/{id:[0-9]+}", protected(updateUserHandler)).Methods("PUT")
	router.Handle("/users/{id:[0-9]+}", protected(deleteUserHandler)).Methods("DELETE")

	return router
}
