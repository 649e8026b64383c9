package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server     ServerConfig      `yaml:"server"`
	Log        LogConfig         `yaml:"log"`
	Sheets     SheetsConfig      `yaml:"sheets"`
	Upload     UploadConfig      `yaml:"upload"`
	Minio      MinioConfig       `yaml:"minio"`
	Auth       AuthConfig        `yaml:"auth"`
	Store      StoreConfig       `yaml:"store"`
	Users      []User            `yaml:"users"`
	Categories map[string]string `yaml:"categories"`
}

type ServerConfig struct {
	Port int `yaml:"port"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// SheetsConfig points at the spreadsheet scripting endpoint and names the
// backing partitions.
type SheetsConfig struct {
	ScriptURL      string `yaml:"script_url"`
	DocumentsSheet string `yaml:"documents_sheet"`
	RenewalSheet   string `yaml:"renewal_sheet"`
	ApprovalSheet  string `yaml:"approval_sheet"`
	UploadFolderID string `yaml:"upload_folder_id"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// UploadConfig selects where document files land: "script" routes through
// the scripting endpoint's uploadFile action, "minio" stores them in a
// self-hosted bucket.
type UploadConfig struct {
	Backend string `yaml:"backend"`
}

type MinioConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"use_ssl"`
}

type AuthConfig struct {
	JWTSecret        string `yaml:"jwt_secret"`
	TokenExpireHours int    `yaml:"token_expire_hours"`
}

type StoreConfig struct {
	MaxShares int `yaml:"max_shares"`
}

type User struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Role     string `yaml:"role"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	// Set defaults
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Sheets.DocumentsSheet == "" {
		cfg.Sheets.DocumentsSheet = "Documents"
	}
	if cfg.Sheets.RenewalSheet == "" {
		cfg.Sheets.RenewalSheet = "Updated Renewal"
	}
	if cfg.Sheets.ApprovalSheet == "" {
		cfg.Sheets.ApprovalSheet = "Approval Documents"
	}
	if cfg.Sheets.TimeoutSeconds == 0 {
		cfg.Sheets.TimeoutSeconds = 60
	}
	if cfg.Upload.Backend == "" {
		cfg.Upload.Backend = "script"
	}
	if cfg.Auth.TokenExpireHours == 0 {
		cfg.Auth.TokenExpireHours = 24
	}
	if cfg.Store.MaxShares == 0 {
		cfg.Store.MaxShares = 200
	}

	return &cfg, nil
}

// FindUser finds a user by username
func (c *Config) FindUser(username string) *User {
	for i := range c.Users {
		if c.Users[i].Username == username {
			return &c.Users[i]
		}
	}
	return nil
}
