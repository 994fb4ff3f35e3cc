package server

import (
	"fmt"
	"path"

	"github.com/amachie/folio/server/gstorage"
	"github.com/amachie/folio/server/models"
	"github.com/amachie/folio/server/work"
	"github.com/amachie/folio/utils"
)

const (
	SEND_WELCOME_MESSAGE_HANDLER = "send_welcome_message"
	BACKUP_SQLITE_DB_HANDLER     = "backup_sqlite_db"
)

// sendWelcomeMessage greets a new subscriber over SMS, or whatsapp
// for subscribers who opted into it
func sendWelcomeMessage(args map[string]interface{}) error {
	if !twilioEnabled() {
		logg.Warn("sendWelcomeMessage: twilio notifications are not enabled, skipping")
		return nil
	}

	name := fmt.Sprint(args["name"])
	phone := fmt.Sprint(args["phone"])
	msg := fmt.Sprintf(
		"Hi %v! Thanks for subscribing to the newsletter. Reply STOP at any time to unsubscribe.", name)

	if whatsapp, ok := args["whatsapp"].(bool); ok && whatsapp {
		return twilioClient.SendWhatsappMessage(phone, msg)
	}

	return twilioClient.SendMessage(phone, msg)
}

// backupSqliteDb uploads the sqlite db file to the configured cloud storage bucket
func backupSqliteDb(map[string]interface{}) error {
	if !sqliteBackupEnabled() {
		logg.Warn("backupSqliteDb: sqlite backup is not enabled, skipping")
		return nil
	}

	gs, err := gstorage.NewGStorage(serverConfig.Google.ApplicationCredentials)
	if err != nil {
		return err
	}

	storageConfig := serverConfig.Google.Storage
	return gs.UploadFile(storageConfig.Bucket, storageConfig.Prefix, dbFilePath)
}

// restoreSqliteDbIfMissing pulls the last db backup from cloud storage on a
// fresh host, so the subscriber list & its audit trail survive re-deploys
func restoreSqliteDbIfMissing() error {
	if utils.FileExist(dbFilePath) {
		return nil
	}

	gs, err := gstorage.NewGStorage(serverConfig.Google.ApplicationCredentials)
	if err != nil {
		return err
	}

	storageConfig := serverConfig.Google.Storage
	object := path.Join(storageConfig.Prefix, models.DB_NAME)

	err = gs.DownloadFile(storageConfig.Bucket, object, dbFilePath)
	if err == gstorage.ErrObjectNotExist {
		logg.Infof("No db backup found in bucket=%v, starting with a fresh db", storageConfig.Bucket)
		return nil
	}
	if err != nil {
		return err
	}

	logg.Infof("Restored db backup from bucket=%v", storageConfig.Bucket)
	return nil
}

func registerJobHandlers(wpa *work.WorkerPoolAdapter) {
	wpa.Register(SEND_WELCOME_MESSAGE_HANDLER, sendWelcomeMessage)
	wpa.Register(BACKUP_SQLITE_DB_HANDLER, backupSqliteDb)
}

func enqueueJobs(wpa *work.WorkerPoolAdapter) {
	if !sqliteBackupEnabled() {
		return
	}

	err := wpa.PeriodicallyPerform(serverConfig.Google.Storage.SqliteBackupSchedule, work.JobParams{
		Name:    BACKUP_SQLITE_DB_HANDLER,
		Handler: BACKUP_SQLITE_DB_HANDLER,
		Unique:  true,
		Args:    map[string]interface{}{},
	})
	if err != nil {
		logg.Error(err)
	}
}
