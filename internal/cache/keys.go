package cache

import (
	"fmt"

	"github.com/google/uuid"
)

func DashboardKey(clientID uuid.UUID) string {
	return fmt.Sprintf("dashboard:client:%s", clientID)
}
