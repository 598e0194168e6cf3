package main

type Config struct {
	Server             string `env:"MM_SERVER,required=true"`
	Port               int    `env:"MM_PORT,default=443"`
	Username           string `env:"MM_USER,required=true"`
	Password           string `env:"MM_PASSWORD,required=true"`
	Team               string `env:"MM_TEAM"`
	InsecureSkipVerify bool   `env:"MM_NO_VERIFY,default=false"`
	LogLevel           string `env:"LOG_LEVEL,default=warn"`
}
