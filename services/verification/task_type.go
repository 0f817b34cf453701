package verification

import (
	"encoding/json"

	"shareperk-engage/pkg/taskname"

	"github.com/hibiken/asynq"
)

type VerifyPayload struct {
	ParticipationID string `json:"participation_id"`
}

func NewVerifyTask(participationID string) (*asynq.Task, error) {
	payload, err := json.Marshal(VerifyPayload{ParticipationID: participationID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(taskname.ParticipationVerify, payload), nil
}
