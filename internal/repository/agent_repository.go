package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// AgentRepository — справочник квалификации агентов
type AgentRepository struct {
	pool *pgxpool.Pool
}

func NewAgentRepository(pool *pgxpool.Pool) *AgentRepository {
	return &AgentRepository{pool: pool}
}

// QualifiedAgents получает id активных агентов, квалифицированных для
// связки (организация, страна, услуга), по возрастанию id.
// Услуга не указана - достаточно организации и страны.
func (r *AgentRepository) QualifiedAgents(ctx context.Context, organizationID int64, countryCode string, serviceID *int64) ([]int64, error) {
	query := `
		SELECT a.id
		FROM agents a
		WHERE a.organization_id = $1
		  AND a.country_code = $2
		  AND a.is_active
		  AND ($3::bigint IS NULL OR EXISTS (
			SELECT 1 FROM agent_services s
			WHERE s.agent_id = a.id AND s.service_id = $3
		  ))
		ORDER BY a.id
	`

	rows, err := r.pool.Query(ctx, query, organizationID, countryCode, serviceID)
	if err != nil {
		return nil, fmt.Errorf("get qualified agents: %w", err)
	}
	defer rows.Close()

	var agents []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan agent id: %w", err)
		}
		agents = append(agents, id)
	}

	return agents, rows.Err()
}
