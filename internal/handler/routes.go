package handler

import (
	"bytes"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"hostel/internal/attendance"
	"hostel/internal/auth"
	"hostel/internal/model"
	"hostel/internal/report"
)

const maxPhotoBytes = 5 << 20

func (h *Handler) login(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	tokens, role, err := h.Auth.Login(req.Username, req.Password)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tokens": tokens, "role": role})
}

func (h *Handler) refresh(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	tokens, err := h.Auth.Refresh(req.RefreshToken)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tokens": tokens})
}

func (h *Handler) me(c *gin.Context) {
	claims, _ := auth.Actor(c)
	c.JSON(http.StatusOK, gin.H{"id": claims.Subject, "role": claims.Role})
}

func (h *Handler) dashboard(c *gin.Context) {
	ctx := c.Request.Context()
	totals, err := h.Roster.Totals(ctx)
	if err != nil {
		h.fail(c, err)
		return
	}
	date := c.DefaultQuery("date", h.Attendance.Today())
	summary, err := h.Attendance.DailySummary(ctx, date)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"total_students": totals.Students,
		"total_rooms":    totals.Rooms,
		"attendance":     summary,
	})
}

func (h *Handler) listRooms(c *gin.Context) {
	rooms, err := h.Roster.ListRooms(c.Request.Context(), c.Query("search"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rooms": rooms})
}

func (h *Handler) getRoom(c *gin.Context) {
	room, err := h.Roster.GetRoom(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, room)
}

func (h *Handler) roomStudents(c *gin.Context) {
	students, err := h.Roster.RoomStudents(c.Request.Context(), c.Param("id"), c.Query("search"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"students": students})
}

func (h *Handler) createRoom(c *gin.Context) {
	var in model.RoomInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	room, err := h.Roster.CreateRoom(c.Request.Context(), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, room)
}

func (h *Handler) updateRoom(c *gin.Context) {
	var patch model.RoomPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		badRequest(c, err)
		return
	}
	room, err := h.Roster.UpdateRoom(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, room)
}

func (h *Handler) deleteRoom(c *gin.Context) {
	if err := h.Roster.DeleteRoom(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) recount(c *gin.Context) {
	claims, _ := auth.Actor(c)
	if err := h.Roster.RequestRecount(c.Request.Context(), "requested by "+claims.Subject); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "queued"})
}

func (h *Handler) listStudents(c *gin.Context) {
	students, err := h.Roster.ListStudents(c.Request.Context(), c.Query("room_id"), c.Query("search"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"students": students})
}

func (h *Handler) getStudent(c *gin.Context) {
	st, err := h.Roster.GetStudent(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (h *Handler) createStudent(c *gin.Context) {
	var in model.StudentInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	st, err := h.Roster.CreateStudent(c.Request.Context(), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, st)
}

func (h *Handler) updateStudent(c *gin.Context) {
	var patch model.StudentPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		badRequest(c, err)
		return
	}
	st, err := h.Roster.UpdateStudent(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (h *Handler) deleteStudent(c *gin.Context) {
	if err := h.Roster.DeleteStudent(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) uploadPhoto(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "file field required"})
		return
	}
	defer file.Close()
	data, err := io.ReadAll(io.LimitReader(file, maxPhotoBytes+1))
	if err != nil {
		h.fail(c, err)
		return
	}
	if len(data) > maxPhotoBytes {
		c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{"error": "photo exceeds 5MB"})
		return
	}
	st, err := h.Roster.UploadPhoto(c.Request.Context(), c.Param("id"), header.Filename, data)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (h *Handler) studentAttendance(c *gin.Context) {
	m, err := h.month(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	records, summary, err := h.Attendance.StudentMonth(c.Request.Context(), c.Param("id"), m)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": records, "summary": summary})
}

func (h *Handler) day(c *gin.Context) {
	date := c.DefaultQuery("date", h.Attendance.Today())
	views, err := h.Attendance.Day(c.Request.Context(), date, attendance.Filter{
		Search: strings.TrimSpace(c.Query("search")),
		Status: c.DefaultQuery("status", attendance.StatusAll),
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"date": date, "students": views})
}

func (h *Handler) mark(c *gin.Context) {
	var req struct {
		StudentID string       `json:"student_id"`
		Date      string       `json:"date"`
		Status    model.Status `json:"status"`
		Reason    string       `json:"reason"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if req.Date == "" {
		req.Date = h.Attendance.Today()
	}
	claims, _ := auth.Actor(c)
	rec, err := h.Attendance.Mark(c.Request.Context(), attendance.MarkInput{
		StudentID: req.StudentID,
		Date:      req.Date,
		Status:    req.Status,
		Reason:    req.Reason,
		MarkedBy:  claims.Subject,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (h *Handler) download(c *gin.Context) {
	m, err := h.month(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	format, err := report.ParseFormat(c.Query("format"))
	if err != nil {
		h.fail(c, err)
		return
	}
	rows, err := h.Reports.Monthly(c.Request.Context(), m)
	if err != nil {
		h.fail(c, err)
		return
	}
	var buf bytes.Buffer
	if err := report.Write(&buf, format, m, rows); err != nil {
		h.fail(c, err)
		return
	}
	c.Header("Content-Disposition", "attachment; filename="+format.Filename(m))
	c.Data(http.StatusOK, format.ContentType(), buf.Bytes())
}

// month reads ?month=YYYY-MM, defaulting to the current month.
func (h *Handler) month(c *gin.Context) (model.Month, error) {
	if s := c.Query("month"); s != "" {
		return model.ParseMonth(s)
	}
	return h.Attendance.CurrentMonth(), nil
}
