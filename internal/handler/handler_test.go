package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/jengzang/trajectory-prep/internal/partition"
	"github.com/jengzang/trajectory-prep/internal/repository"
	"github.com/jengzang/trajectory-prep/internal/service"
)

func TestWriteError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		err    error
		status int
	}{
		{fmt.Errorf("%w: abc", repository.ErrDatasetNotFound), http.StatusNotFound},
		{fmt.Errorf("%w: abc", repository.ErrRunNotFound), http.StatusNotFound},
		{fmt.Errorf("%w: holdout", partition.ErrUnknownPartition), http.StatusNotFound},
		{fmt.Errorf("%w: batch 9", partition.ErrBatchOutOfRange), http.StatusBadRequest},
		{service.ErrRunInProgress, http.StatusConflict},
		{errors.New("disk full"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			writeError(c, tt.err)
			assert.Equal(t, tt.status, w.Code)
			assert.Contains(t, w.Body.String(), tt.err.Error())
		})
	}
}
