package awslambda

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResponseRecorder_Header(t *testing.T) {
	recorder := newResponseRecorder()

	headers := recorder.Header()
	assert.NotNil(t, headers)

	headers.Set("Content-Type", "application/json")
	assert.Equal(t, "application/json", recorder.Headers.Get("Content-Type"))
}

func TestResponseRecorder_Write(t *testing.T) {
	tests := []struct {
		name          string
		initialStatus bool
		data          []byte
		expectedLen   int
		expectedBody  string
		expectedCode  int
	}{
		{
			name:         "write with no status set",
			data:         []byte("test data"),
			expectedLen:  9,
			expectedBody: "test data",
			expectedCode: http.StatusOK,
		},
		{
			name:          "write with status already set",
			initialStatus: true,
			data:          []byte("more data"),
			expectedLen:   9,
			expectedBody:  "more data",
			expectedCode:  http.StatusCreated,
		},
		{
			name:          "write empty data",
			initialStatus: true,
			data:          []byte{},
			expectedLen:   0,
			expectedBody:  "",
			expectedCode:  http.StatusCreated,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder := newResponseRecorder()
			if tt.initialStatus {
				recorder.WriteHeader(http.StatusCreated)
			}

			n, err := recorder.Write(tt.data)
			assert.NoError(t, err)
			assert.Equal(t, tt.expectedLen, n)
			assert.Equal(t, tt.expectedBody, recorder.Body.String())
			assert.Equal(t, tt.expectedCode, recorder.StatusCode)
			assert.True(t, recorder.writtenStatus)
		})
	}
}

func TestResponseRecorder_WriteHeader(t *testing.T) {
	tests := []struct {
		name           string
		initialStatus  int
		secondStatus   int
		expectedStatus int
	}{
		{
			name:           "write OK status then Not Found",
			initialStatus:  http.StatusOK,
			secondStatus:   http.StatusNotFound,
			expectedStatus: http.StatusOK,
		},
		{
			name:           "write Bad Request status then OK",
			initialStatus:  http.StatusBadRequest,
			secondStatus:   http.StatusOK,
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder := newResponseRecorder()

			recorder.WriteHeader(tt.initialStatus)
			assert.Equal(t, tt.initialStatus, recorder.StatusCode)

			// the first status sticks
			recorder.WriteHeader(tt.secondStatus)
			assert.Equal(t, tt.expectedStatus, recorder.StatusCode)
			assert.True(t, recorder.writtenStatus)
		})
	}
}

func TestResponseRecorder_NothingWritten(t *testing.T) {
	recorder := newResponseRecorder()
	assert.Equal(t, http.StatusOK, recorder.StatusCode)
	assert.False(t, recorder.writtenStatus)
	assert.Zero(t, recorder.Body.Len())
}
