package buildfile

import "strings"

// Command documents one Dockerfile instruction.
type Command struct {
	Keyword     string
	Description string
	SideEffect  string
	Example     string
}

var commands = map[string]Command{
	"FROM": {
		Description: "Sets the base image for subsequent instructions.",
		SideEffect:  "Creates a new build stage and sets the base image.",
		Example:     "FROM ubuntu:20.04",
	},
	"RUN": {
		Description: "Executes commands in a new layer on top of the current image.",
		SideEffect:  "Creates a new layer in the image with the results of the command.",
		Example:     "RUN apt-get update && apt-get install -y curl",
	},
	"CMD": {
		Description: "Provides default commands for an executing container.",
		SideEffect:  "Sets the command to run when the container starts.",
		Example:     `CMD ["echo", "Hello World"]`,
	},
	"LABEL": {
		Description: "Adds metadata to an image as key-value pairs.",
		SideEffect:  "Adds metadata to the image.",
		Example:     `LABEL version="1.0"`,
	},
	"EXPOSE": {
		Description: "Informs the runtime that the container listens on the given ports.",
		SideEffect:  "Documents which ports are intended to be published.",
		Example:     "EXPOSE 80/tcp",
	},
	"ENV": {
		Description: "Sets environment variables.",
		SideEffect:  "Persists the variables in the image configuration.",
		Example:     "ENV NODE_ENV=production",
	},
	"COPY": {
		Description: "Copies files from the build context into the image.",
		SideEffect:  "Creates a new layer with the copied files.",
		Example:     "COPY package.json /app/",
	},
	"ADD": {
		Description: "Copies files, remote URLs or archives into the image.",
		SideEffect:  "Creates a new layer; local tar archives are extracted.",
		Example:     "ADD rootfs.tar.gz /",
	},
	"WORKDIR": {
		Description: "Sets the working directory for following instructions.",
		SideEffect:  "Changes image configuration only.",
		Example:     "WORKDIR /app",
	},
	"USER": {
		Description: "Sets the user for following instructions and the container.",
		SideEffect:  "Changes image configuration only.",
		Example:     "USER nobody",
	},
	"ENTRYPOINT": {
		Description: "Configures the executable the container runs.",
		SideEffect:  "Changes image configuration only.",
		Example:     `ENTRYPOINT ["/docker-entrypoint.sh"]`,
	},
	"VOLUME": {
		Description: "Declares a mount point for externally mounted volumes.",
		SideEffect:  "Changes image configuration only.",
		Example:     "VOLUME /data",
	},
}

// Lookup returns the reference entry for a keyword, case-insensitively.
func Lookup(keyword string) (Command, bool) {
	k := strings.ToUpper(strings.TrimSpace(keyword))
	c, ok := commands[k]
	if ok {
		c.Keyword = k
	}
	return c, ok
}
