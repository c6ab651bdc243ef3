package config

import (
	"strings"
	"sync"

	"github.com/spf13/viper"
)

const DATABASE_TYPE = "HRFLOW_DATABASE_TYPE"
const DATABASE_URL = "HRFLOW_DATABASE_URL"
const DATABASE_SQLLITE_FILE_NAME = "HRFLOW_DATABASE_SQLLITE_FILE_NAME"
const SERVER_WEB_PORT = "HRFLOW_SERVER_WEB_PORT"
const WEB_SESSION_EXPIRY_HOURS = "HRFLOW_WEB_SESSION_EXPIRY_HOURS"
const HISTORY_RETRY_ATTEMPTS = "HRFLOW_HISTORY_RETRY_ATTEMPTS" //extra attempts for a history append after the instance write committed
const SEARCH_MAX_LIMIT = "HRFLOW_SEARCH_MAX_LIMIT"             //hard cap on page size for search and history queries

const DATABASE_TYPE_POSTGRES = "POSTGRES"
const DATABASE_TYPE_MYSQL = "MYSQL"
const DATABASE_TYPE_SQLLITE = "SQLLITE"

var initOnce sync.Once

// initViper binds every HRFLOW_* key to its environment variable and
// installs defaults. An optional hrflow.yaml next to the binary can
// override defaults; environment always wins.
func initViper() {
	viper.AutomaticEnv()
	viper.SetConfigName("hrflow")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	_ = viper.ReadInConfig() // config file is optional

	viper.SetDefault(SERVER_WEB_PORT, "8080")
	viper.SetDefault(WEB_SESSION_EXPIRY_HOURS, "8")
	viper.SetDefault(HISTORY_RETRY_ATTEMPTS, "1")
	viper.SetDefault(SEARCH_MAX_LIMIT, "1000")
	viper.SetDefault(DATABASE_SQLLITE_FILE_NAME, "./hrflow.db")
}

func GetSystemSettingInteger(settingKey string) int {
	initOnce.Do(initViper)
	return viper.GetInt(settingKey)
}

func GetSystemSettingString(settingKey string) string {
	initOnce.Do(initViper)
	return strings.TrimSpace(viper.GetString(settingKey))
}
