package api

import (
	"bytes"
	"encoding/json"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"meritboard/internal/auth"
	"meritboard/internal/ledger"
	"meritboard/internal/merit"
	"meritboard/internal/model"
)

type loginRequest struct {
	Username  string `json:"username"`
	StudentID string `json:"studentId"`
	Password  string `json:"password"`
	Role      string `json:"role"`
}

func (h *handlers) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid login request", err)
		return
	}
	res, err := h.svc.Login(c.Request.Context(), merit.LoginRequest{
		Username:  req.Username,
		StudentID: req.StudentID,
		Password:  req.Password,
		Role:      req.Role,
	})
	if err != nil {
		writeError(c, h.log, err, "Login failed")
		return
	}
	body := gin.H{"token": res.Token, "role": res.Role}
	if res.Role == auth.RoleStudent {
		body["studentId"] = res.StudentID
	}
	c.JSON(http.StatusOK, body)
}

type addStudentRequest struct {
	Name       string `json:"name" binding:"required"`
	RollNumber string `json:"rollNumber" binding:"required"`
	Department string `json:"department" binding:"required"`
	Batch      string `json:"batch"`
	Password   string `json:"password" binding:"required"`
}

func (h *handlers) addStudent(c *gin.Context) {
	var req addStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Could not add student", err)
		return
	}
	student, err := h.svc.CreateStudent(c.Request.Context(), merit.NewStudent{
		Name:       req.Name,
		RollNumber: req.RollNumber,
		Department: req.Department,
		Batch:      req.Batch,
		Password:   req.Password,
	})
	if err != nil {
		writeError(c, h.log, err, "Could not add student")
		return
	}
	c.JSON(http.StatusCreated, student)
}

// points accepts a JSON number or a numeric string. Anything unparseable becomes
// NaN so the ledger rejects it with the usual message.
type points float64

func (p *points) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			v = math.NaN()
		}
		*p = points(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		*p = points(math.NaN())
		return nil
	}
	*p = points(v)
	return nil
}

type assignPointsRequest struct {
	StudentID  string  `json:"studentId"`
	RollNumber string  `json:"rollNumber"`
	Type       string  `json:"type"`
	Points     *points `json:"points"`
	Reason     string  `json:"reason"`
}

func (h *handlers) assignPoints(c *gin.Context) {
	var req assignPointsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Could not assign points", err)
		return
	}
	p := math.NaN()
	if req.Points != nil {
		p = float64(*req.Points)
	}
	student, err := h.svc.AssignPoints(c.Request.Context(), merit.AssignRequest{
		StudentID:  req.StudentID,
		RollNumber: req.RollNumber,
		Type:       model.ActivityType(req.Type),
		Points:     p,
		Reason:     req.Reason,
	})
	if err != nil {
		writeError(c, h.log, err, "Could not assign points")
		return
	}
	c.JSON(http.StatusOK, student)
}

func (h *handlers) getStudent(c *gin.Context) {
	caller, _ := auth.IdentityFrom(c)
	student, err := h.svc.GetStudent(c.Request.Context(), caller, c.Param("id"))
	if err != nil {
		writeError(c, h.log, err, "Could not fetch student")
		return
	}
	c.JSON(http.StatusOK, student)
}

func (h *handlers) leaderboard(c *gin.Context) {
	rows, err := h.svc.Leaderboard(c.Request.Context(), ledger.LeaderboardFilter{
		Department: c.Query("department"),
		Batch:      c.Query("batch"),
		Query:      c.Query("q"),
	})
	if err != nil {
		writeError(c, h.log, err, "Could not fetch leaderboard")
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (h *handlers) deleteStudent(c *gin.Context) {
	if err := h.svc.DeleteStudent(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, h.log, err, "Could not delete student")
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// removeActivity resolves the activity by id and, for legacy records without
// ids, by the optional ?index= position.
func (h *handlers) removeActivity(c *gin.Context) {
	var index *int
	if raw, ok := c.GetQuery("index"); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(raw)); err == nil {
			index = &n
		}
	}
	student, err := h.svc.RemoveActivity(c.Request.Context(), c.Param("id"), c.Param("activityId"), index)
	if err != nil {
		writeError(c, h.log, err, "Could not delete activity")
		return
	}
	c.JSON(http.StatusOK, student)
}

func (h *handlers) exportCSV(c *gin.Context) {
	report, err := h.svc.ExportReport(c.Request.Context())
	if err != nil {
		writeError(c, h.log, err, "Could not export CSV")
		return
	}
	c.Header("Content-Disposition", `attachment; filename="report.csv"`)
	c.Data(http.StatusOK, "text/csv", report)
}

func (h *handlers) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *handlers) ready(c *gin.Context) {
	ctx := c.Request.Context()
	storeHealthy := h.store.Ping(ctx) == nil
	body := gin.H{"ok": storeHealthy, "store": storeHealthy}
	if h.redis != nil {
		redisHealthy := h.redis.Healthy(ctx)
		body["redis"] = redisHealthy
		if !redisHealthy {
			body["ok"] = false
		}
	}
	status := http.StatusOK
	if body["ok"] != true {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, body)
}
