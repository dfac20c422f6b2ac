package config

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/hoshinonyaruko/snake-in-web/snake"
)

const (
	VariantClassic = "classic"
	VariantFaces   = "faces"
)

// AppConfig holds the structure of the configuration
type AppConfig struct {
	SelfPath   string `json:"selfpath" validate:"required"`
	Port       string `json:"port" validate:"required,numeric"`
	Blocksize  int    `json:"blocksize" validate:"min=4,max=200"`
	Width      int    `json:"width" validate:"min=4,max=200"`
	Height     int    `json:"height" validate:"min=3,max=200"`
	Variant    string `json:"variant" validate:"oneof=classic faces"`
	StartSpeed int    `json:"start_speed" validate:"omitempty,min=1"` // 0 = variant default
	MinSpeed   int    `json:"min_speed" validate:"omitempty,min=1"`   // 0 = variant default
	DBPath     string `json:"db_path" validate:"required"`
	FacesDir   string `json:"faces_dir" validate:"required"`
	Player     string `json:"player" validate:"max=32"`
}

var (
	instance *AppConfig
	once     sync.Once
	validate = validator.New()
)

// Default returns the settings written to a fresh config file.
func Default() *AppConfig {
	return &AppConfig{
		SelfPath:  "http://www.example.com", // Default value
		Port:      "38870",                  // Default value
		Blocksize: 40,
		Width:     20,
		Height:    15,
		Variant:   VariantFaces,
		DBPath:    "game.db",
		FacesDir:  "./final_faces",
	}
}

// LoadConfig initializes and returns the instance of AppConfig
func LoadConfig(filePath string) *AppConfig {
	once.Do(func() {
		cfg, err := ReadConfig(filePath)
		if err != nil {
			panic(err)
		}
		instance = cfg
	})
	return instance
}

// ReadConfig loads the config file if it exists, otherwise creates one with defaults.
func ReadConfig(filePath string) (*AppConfig, error) {
	cfg := Default()
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		if err := saveConfig(filePath, cfg); err != nil {
			return nil, err
		}
	} else if err := loadConfig(filePath, cfg); err != nil {
		return nil, err
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", filePath, err)
	}
	if err := cfg.GameSettings().Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", filePath, err)
	}
	return cfg, nil
}

// loadConfig loads the settings from the file
func loadConfig(filePath string, cfg *AppConfig) error {
	file, err := os.Open(filePath)
	if err != nil {
		return err
	}
	defer file.Close()

	decoder := json.NewDecoder(file)
	if err := decoder.Decode(cfg); err != nil {
		return fmt.Errorf("decode %s: %w", filePath, err)
	}
	return nil
}

// saveConfig saves the current settings to the file
func saveConfig(filePath string, cfg *AppConfig) error {
	file, err := os.Create(filePath)
	if err != nil {
		return err
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	return encoder.Encode(cfg)
}

// GameSettings 根据玩法和速度配置生成游戏参数
func (c *AppConfig) GameSettings() snake.Settings {
	var s snake.Settings
	if c.Variant == VariantClassic {
		s = snake.ClassicSettings(c.Width, c.Height)
	} else {
		s = snake.FacesSettings(c.Width, c.Height)
	}
	if c.StartSpeed > 0 {
		s.StartSpeed = c.StartSpeed
	}
	if c.MinSpeed > 0 {
		s.MinSpeed = c.MinSpeed
	}
	return s
}

// GetConfigValue returns the value of the configuration by key
func GetConfigValue(key string) interface{} {
	switch key {
	case "selfpath":
		return instance.SelfPath
	case "port":
		return instance.Port
	case "blocksize":
		return instance.Blocksize
	case "width":
		return instance.Width
	case "height":
		return instance.Height
	case "variant":
		return instance.Variant
	case "db_path":
		return instance.DBPath
	case "faces_dir":
		return instance.FacesDir
	case "player":
		return instance.Player
	default:
		return ""
	}
}
