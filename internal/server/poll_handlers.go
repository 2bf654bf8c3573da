package server

import (
	"github.com/gofiber/fiber/v2"
)

// VotePoll handles POST /api/polls/options/:optionId/vote
// @Summary Vote on a poll option
// @Description Voting for an option the caller already chose retracts the vote. Single-choice polls move the caller's vote.
// @Tags polls
// @Produce json
// @Security BearerAuth
// @Param optionId path int true "Option ID"
// @Success 200 {object} models.Poll
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /polls/options/{optionId}/vote [post]
func (s *Server) VotePoll(c *fiber.Ctx) error {
	optionID, err := s.parseID(c, "optionId")
	if err != nil {
		return nil
	}
	poll, err := s.polls.Vote(c.UserContext(), optionID, actor(c).ID)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(poll)
}

// AddPollOption handles POST /api/polls/:id/options
func (s *Server) AddPollOption(c *fiber.Ctx) error {
	pollID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req struct {
		Text string `json:"text"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	poll, err := s.polls.AddOption(c.UserContext(), pollID, actor(c), req.Text)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(poll)
}
