package git

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDiff(t *testing.T) {
	diff := []byte(`diff --git a/src/server.c b/src/server.c
index 111..222 100644
--- a/src/server.c
+++ b/src/server.c
@@ -10,0 +11,2 @@ static void handle(void)
+    pthread_mutex_lock(&m);
+    pthread_mutex_unlock(&m);
@@ -40 +42 @@ int main(void)
-    old();
+    new_call();
diff --git a/docs/notes.md b/docs/notes.md
index 333..444 100644
--- a/docs/notes.md
+++ b/docs/notes.md
@@ -1 +1 @@
-old
+new
`)

	changes := parseDiff(diff)
	require.Len(t, changes, 2)

	t.Run("Paths from the new version", func(t *testing.T) {
		assert.Equal(t, "src/server.c", changes[0].Path)
		assert.Equal(t, "docs/notes.md", changes[1].Path)
	})

	t.Run("Changed lines from chunk headers", func(t *testing.T) {
		assert.Equal(t, []int{11, 12, 42}, changes[0].ChangedLines)
		assert.Equal(t, []int{1}, changes[1].ChangedLines)
	})
}

func TestParseDiff_Empty(t *testing.T) {
	assert.Empty(t, parseDiff(nil))
}
