package controller

import (
	"codearena/internal/match/model"
	"codearena/internal/match/service"
	"codearena/pkg/response"

	"github.com/gin-gonic/gin"
)

type ProblemController struct {
	coordinator *service.Coordinator
	identity    *Identity
}

func NewProblemController(coordinator *service.Coordinator, identity *Identity) *ProblemController {
	return &ProblemController{coordinator: coordinator, identity: identity}
}

func (pc *ProblemController) RegisterRoutes(router *gin.RouterGroup) {
	problems := router.Group("/problems", pc.identity.Middleware())
	problems.GET("", pc.List)
}

// problemView exposes the catalog without test case answers.
type problemView struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Difficulty  string `json:"difficulty"`
	Topic       string `json:"topic"`
	Description string `json:"description"`
	CaseCount   int    `json:"case_count"`
}

func toProblemView(problem *model.Problem) problemView {
	return problemView{
		ID:          problem.ID,
		Title:       problem.Title,
		Difficulty:  problem.Difficulty,
		Topic:       problem.Topic,
		Description: problem.Description,
		CaseCount:   len(problem.TestCases),
	}
}

func (pc *ProblemController) List(c *gin.Context) {
	problems, err := pc.coordinator.ListProblems(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	views := make([]problemView, 0, len(problems))
	for _, problem := range problems {
		views = append(views, toProblemView(problem))
	}
	response.Success(c, gin.H{"problems": views})
}
