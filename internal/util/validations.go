package util

import (
	"strconv"

	"github.com/pkg/errors"
)

// IsNotEmpty checks if value stored at given key is a non empty string.
func IsNotEmpty(value interface{}, key string) error {
	s, ok := value.(string)
	if !ok {
		return errors.Errorf("Value for %s needs to be a string.", key)
	}

	if len(s) == 0 {
		return errors.Errorf("Value for %s cannot be empty.", key)
	}
	return nil
}

// IsInt checks if value stored at a given key is an int.
func IsInt(value interface{}, key string) error {
	s, _ := value.(string)
	if _, err := strconv.Atoi(s); err != nil {
		return errors.Errorf("Value for %s needs to be an integer.", key)
	}
	return nil
}

// IsPositiveInt checks if value stored at a given key is an int greater than zero.
func IsPositiveInt(value interface{}, key string) error {
	if err := IsInt(value, key); err != nil {
		return errors.Errorf("Value for %s needs to be a positive integer.", key)
	}
	s, _ := value.(string)
	if i, _ := strconv.Atoi(s); i <= 0 {
		return errors.Errorf("Value for %s needs to be a positive integer.", key)
	}
	return nil
}

// IsBool checks if value stored at a given key is a bool.
func IsBool(value interface{}, key string) error {
	s, _ := value.(string)
	if _, err := strconv.ParseBool(s); err != nil {
		return errors.Errorf("Value for %s needs to be an bool.", key)
	}
	return nil
}
