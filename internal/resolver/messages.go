package resolver

import (
	"fmt"

	"stackresolve/internal/remotes"
)

func repoNotFoundMessage(remote string) string {
	return fmt.Sprintf("Repo %q not found in your editor. Open it in order to navigate the stack trace.", remotes.RepoName(remote))
}

// missingShaMessage is also used when the trace has no usable frames.
func missingShaMessage(sha string) string {
	return "Your version of the code doesn't match the environment that triggered the error. " +
		"Fetch the following commit to better investigate the error.\n" + sha
}

func unmatchedFileMessage(suffix string) string {
	return "Unable to find matching file for path suffix " + suffix
}

const noLineMessage = "Unable to resolve frame without a line number"

func diffFailedMessage(sha string) string {
	return fmt.Sprintf("Unable to calculate diff from %s to HEAD", sha)
}

func deletedAtHeadMessage(file, sha string) string {
	return fmt.Sprintf("File %s was deleted between %s and HEAD", file, sha)
}

func unreadableHeadMessage(file string) string {
	return "Unable to read current HEAD contents of " + file
}

func unreadableBufferMessage(file string) string {
	return "Unable to read current buffer contents of " + file
}
