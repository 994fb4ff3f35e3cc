package server

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/amachie/folio/server/auth"
	"github.com/amachie/folio/server/models"
	"github.com/amachie/folio/server/work"
	"github.com/amachie/folio/utils"
	"github.com/go-playground/validator"
)

var phoneNumberRegex = regexp.MustCompile(`^\+[1-9]\d{1,14}$`)

// ---------------------------------------------------------------------------------//
// Handler Helper functions
// --------------------------------------------------------------------------------//

func writeResponse(rw http.ResponseWriter, payLoad ResponsePayload, statusCode int) {
	if statusCode >= http.StatusInternalServerError {
		logg.Error(payLoad.Errors)
	} else if statusCode >= http.StatusBadRequest {
		logg.Info(payLoad.Errors)
	}

	rw.WriteHeader(statusCode)
	json.NewEncoder(rw).Encode(payLoad)
}

func writeErrMsgForSmsWebhook(rw http.ResponseWriter, err error) {
	logg.Error(err)

	errMsg := "Sorry an application error has occured.\nPlease try again later"
	msgBytes, err := xml.Marshal(&TwilioSmsResponse{Message: errMsg})
	if err != nil {
		logg.Errorf("writeErrMsgForSmsWebhook: %v", err)
	}

	writeSmsWebHookResponse(rw, msgBytes, http.StatusOK)
}

func writeSmsWebHookResponse(rw http.ResponseWriter, body []byte, status int) {
	rw.Header().Set("Content-Type", "text/xml")
	rw.WriteHeader(status)
	rw.Write(body)
}

func removeUnknownFields(args map[string]interface{}, validFields map[string]bool) {
	for key := range args {
		if !validFields[key] {
			delete(args, key)
		}
	}
}

func pageFromQuery(r *http.Request) int {
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		return 1
	}
	return page
}

func RegisterValidators(validate *validator.Validate) error {
	err := validate.RegisterValidation("password", func(fl validator.FieldLevel) bool {
		// if whitespace in password return false
		err := validate.Var(fl.Field().String(), "contains= ")
		if err == nil {
			return false
		}
		return len(fl.Field().String()) > 0
	})
	if err != nil {
		return err
	}

	err = validate.RegisterValidation("e164", func(fl validator.FieldLevel) bool {
		return phoneNumberRegex.MatchString(fl.Field().String())
	})
	if err != nil {
		return err
	}

	return nil
}

func enqueueWelcomeMessage(subscriber *models.Subscriber) {
	if workerPool == nil || !twilioEnabled() {
		return
	}

	err := workerPool.Perform(work.JobParams{
		Name:    SEND_WELCOME_MESSAGE_HANDLER,
		Handler: SEND_WELCOME_MESSAGE_HANDLER,
		Args: map[string]interface{}{
			"name":     subscriber.Name,
			"phone":    subscriber.Phone,
			"whatsapp": subscriber.Whatsapp,
		},
	})
	if err != nil {
		logg.Error(err)
	}
}

// ---------------------------------------------------------------------------------//
// Middleware Helper functions
// --------------------------------------------------------------------------------//

func decodeAndVerifyAuthHeader(authHeaderValue string) DecodedJWT {
	authHeaderList := strings.Split(authHeaderValue, "Bearer ")
	if len(authHeaderList) < 2 {
		return DecodedJWT{ErrorMsg: "no token provided"}
	}

	tokenClaims, err := auth.DecodeJWT(authHeaderList[1], authKeyPair)
	if err != nil {
		return DecodedJWT{ErrorMsg: "invalid token provided"}
	}

	// validate that the user account still exists
	_, err = models.FindUserBy("id", tokenClaims.Subject)
	if err != nil {
		return DecodedJWT{ErrorMsg: "invalid token provided"}
	}

	return DecodedJWT{Claims: tokenClaims}
}

// ---------------------------------------------------------------------------------//
// Server Helper functions
// --------------------------------------------------------------------------------//

func serve(server *http.Server) {
	logg.Infof("Folio server is listening on port:%v", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Fatal(err)
	}
}

func cleanup(workerPool *work.WorkerPoolAdapter, server *http.Server, backupDb bool) {
	// Stop all background jobs & requeuers
	workerPool.Stop()

	if backupDb {
		if err := backupSqliteDb(nil); err != nil {
			logg.Error(err)
		}
	}

	// Shutdown server gracefully
	ctxShutDown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctxShutDown); err != nil {
		logg.Fatalf("Folio server shutdown failed:%+s", err)
	}

	logg.Infof("Folio server stopped properly")
}

// configDirectory retrieves the directory where configs & the sqlite db live
// Or logs an error message and then calls os.Exit if it's unable to.
func configDirectory(devMode bool) string {
	// Use 'folio' folder in home directory for prod
	configFolderName := "folio"
	rootDir, err := os.UserHomeDir()
	fatalOnError(err)

	// Use 'dev' folder in current directory for dev mode
	if devMode {
		configFolderName = "dev"
		rootDir, err = os.Getwd()
		fatalOnError(err)
	}

	configDir := filepath.Join(rootDir, configFolderName)

	err = utils.CreateDirIfNotExist(configDir)
	fatalOnError(err)

	return configDir
}

func configFlagEnabled(value interface{}) bool {
	enabled, ok := value.(bool)
	return ok && enabled
}

func twilioEnabled() bool {
	return serverConfig != nil && twilioClient != nil
}

func sqliteBackupEnabled() bool {
	return serverConfig != nil && configFlagEnabled(serverConfig.Google.Storage.EnableSqliteBackupAndSync)
}

func fatalOnError(err error) {
	if err != nil {
		logg.Fatal(err)
	}
}
