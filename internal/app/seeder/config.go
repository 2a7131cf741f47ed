package seeder

import (
	"fmt"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds sample data pipeline settings.
type Config struct {
	AdminEmail         string `yaml:"admin_email"           env:"SEEDER_ADMIN_EMAIL"           env-default:"admin@example.com"`
	Accounts           int    `yaml:"accounts"              env:"SEEDER_ACCOUNTS"              env-default:"25"`
	Subjects           int    `yaml:"subjects"              env:"SEEDER_SUBJECTS"              env-default:"4"`
	ChaptersPerSubject int    `yaml:"chapters_per_subject"  env:"SEEDER_CHAPTERS_PER_SUBJECT"  env-default:"3"`
	QuizzesPerChapter  int    `yaml:"quizzes_per_chapter"   env:"SEEDER_QUIZZES_PER_CHAPTER"   env-default:"2"`
	QuestionsPerQuiz   int    `yaml:"questions_per_quiz"    env:"SEEDER_QUESTIONS_PER_QUIZ"    env-default:"5"`
	AttemptsPerAccount int    `yaml:"attempts_per_account"  env:"SEEDER_ATTEMPTS_PER_ACCOUNT"  env-default:"8"`
	DaysBack           int    `yaml:"days_back"             env:"SEEDER_DAYS_BACK"             env-default:"60"`
	Seed               uint64 `yaml:"seed"                  env:"SEEDER_SEED"                  env-default:"42"`
	DryRun             bool   `yaml:"dry_run"               env:"SEEDER_DRY_RUN"`
}

// LoadConfig reads seeder configuration from a YAML file and environment variables.
// Priority: ENV > YAML > defaults (via env-default tags).
func LoadConfig(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("seeder config: file %s not found", path)
		}
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("seeder config: read %s: %w", path, err)
		}
		return &cfg, nil
	}

	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("seeder config: read env: %w", err)
	}

	return &cfg, nil
}
